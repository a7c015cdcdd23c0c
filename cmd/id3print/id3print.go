// Command id3print prints the ID3v2 tag of the given MP3 files.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/davecgh/go-spew/spew"
	"github.com/dustin/go-humanize"

	"github.com/suspectpart/id3vx"
)

var (
	verbose = flag.Bool("v", false, "dump raw frame structures")
	lenient = flag.Bool("lenient", false, "tolerate stray null bytes in APIC frames")
)

func printFrame(frame id3vx.Frame) {
	switch f := frame.(type) {
	case id3vx.UserTextFrame:
		fmt.Printf("%s [%s]: %s\n", f.Name(), f.Description, f.Text)
	case id3vx.CommentFrame:
		fmt.Printf("%s [%s/%s]: %s\n", f.Name(), f.Language, f.Description, f.Text)
	case id3vx.PictureFrame:
		fmt.Printf("%s: %s, %s, %s\n", f.Name(), f.MIMEType, f.PictureType, humanize.Bytes(uint64(len(f.Data))))
	case id3vx.ObjectFrame:
		fmt.Printf("%s: %s %q, %s\n", f.Name(), f.MIMEType, f.Filename, humanize.Bytes(uint64(len(f.Object))))
	case id3vx.ChapterFrame:
		fmt.Printf("%s [%s]: %s - %s\n", f.Name(), f.ElementID, f.Start(), f.End())
		subs, err := f.SubFrames()
		if err != nil {
			fmt.Println("  ", err)
			return
		}
		for _, sub := range subs {
			fmt.Print("  ")
			printFrame(sub)
		}
	case id3vx.BinaryFrame:
		fmt.Printf("%s: %s\n", f.Name(), humanize.Bytes(uint64(len(f.Data))))
	default:
		fmt.Printf("%s: %s\n", frame.Name(), frame.Value())
	}
}

func printFile(name string) {
	fmt.Println(name)
	f, err := os.Open(name)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()
	r := bufio.NewReader(f)

	ok, err := id3vx.Check(r)
	if err != nil {
		fmt.Println(err)
		return
	}
	if !ok {
		log.Println("no ID3 tag")
		return
	}

	d := id3vx.NewDecoder(r)
	d.TolerateAPICNulls = *lenient
	tag, err := d.Parse()
	if err != nil {
		fmt.Println(err)
		return
	}

	fmt.Printf("%s, %d bytes, %d frames\n", tag.Header.Version, tag.Size(), len(tag.Frames()))
	for _, frame := range tag.Frames() {
		printFrame(frame)
		if *verbose {
			spew.Dump(frame)
		}
	}
}

func main() {
	flag.Parse()
	for _, name := range flag.Args() {
		printFile(name)
		fmt.Println()
	}
}
