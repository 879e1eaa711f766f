package main

import (
	"context"
	"log"
	"os"

	"github.com/abconlinecourses/pdfx-xblock/pkg/pdfx"
)

func main() {
	// Execute the application with command line arguments
	// Use context.Background() for the main entry point
	if err := pdfx.Main(context.Background(), os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}
