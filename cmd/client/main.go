package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/husen-82/android-stt-ver2.0/pkg/gateway"
)

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "transcription service base URL")
	language := flag.String("language", "", "language code override (e.g. en-US)")
	sampleRate := flag.Int("sample-rate", 0, "sample rate override in Hz")
	timeout := flag.Duration("timeout", 2*time.Minute, "per-attempt request timeout")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: client [flags] <audio-file>")
		flag.PrintDefaults()
		os.Exit(2)
	}
	path := flag.Arg(0)

	buf, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read %s: %v\n", path, err)
		os.Exit(1)
	}

	client, err := gateway.NewClient(gateway.Config{BaseURL: *baseURL, Timeout: *timeout})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	res, err := client.Transcribe(context.Background(), buf, gateway.Options{
		Format:     strings.TrimPrefix(filepath.Ext(path), "."),
		Language:   *language,
		SampleRate: *sampleRate,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "transcription failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(res.Transcript)
	fmt.Fprintf(os.Stderr, "confidence=%.2f chunks=%d took=%dms\n", res.Confidence, res.ChunkCount, res.ProcessingTimeMs)
	for _, alt := range res.Alternatives {
		fmt.Fprintf(os.Stderr, "alt (%.2f): %s\n", alt.Confidence, alt.Transcript)
	}
}
