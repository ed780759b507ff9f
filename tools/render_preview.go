// render_preview renders a profile file to HTML, and optionally PDF, without
// running the server. The input holds {"personal_data": {...}, "cv_content": {...}}.
//
//	go run ./tools -in profile.json -html cv.html -pdf cv.pdf
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"cv-optimizer/internal/model"
	"cv-optimizer/internal/render"
	infra "cv-optimizer/pkg/infrastructure"
)

func main() {
	in := flag.String("in", "profile.json", "profile JSON file")
	htmlOut := flag.String("html", "cv.html", "HTML output path")
	pdfOut := flag.String("pdf", "", "PDF output path; empty skips Chrome")
	flag.Parse()

	b, err := os.ReadFile(*in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read profile: %v\n", err)
		os.Exit(2)
	}
	var profile struct {
		PersonalData model.PersonalData `json:"personal_data"`
		CVContent    map[string]any     `json:"cv_content"`
	}
	if err := json.Unmarshal(b, &profile); err != nil {
		fmt.Fprintf(os.Stderr, "unmarshal: %v\n", err)
		os.Exit(2)
	}

	r, err := render.New(infra.NewChromedpRenderer(os.Getenv("CHROME_PATH"), time.Minute))
	if err != nil {
		fmt.Fprintf(os.Stderr, "renderer: %v\n", err)
		os.Exit(2)
	}
	html, err := r.PreviewMap(profile.PersonalData, profile.CVContent)
	if err != nil {
		fmt.Fprintf(os.Stderr, "preview: %v\n", err)
		os.Exit(2)
	}
	if err := os.WriteFile(*htmlOut, []byte(html), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "write html: %v\n", err)
		os.Exit(2)
	}
	fmt.Printf("wrote %s\n", *htmlOut)

	if *pdfOut == "" {
		return
	}
	content, err := model.Decode(profile.CVContent)
	if err != nil {
		fmt.Fprintf(os.Stderr, "decode content: %v\n", err)
		os.Exit(2)
	}
	pdf, err := r.Render(context.Background(), profile.PersonalData, content)
	if err != nil {
		fmt.Fprintf(os.Stderr, "render pdf: %v\n", err)
		os.Exit(2)
	}
	if err := os.WriteFile(*pdfOut, pdf, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "write pdf: %v\n", err)
		os.Exit(2)
	}
	fmt.Printf("wrote %s\n", *pdfOut)
}
