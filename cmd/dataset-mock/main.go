package main

import (
	"flag"
	"io"
	"log"
	"net/http"
	"os"

	"github.com/klauspost/compress/gzip"
)

func main() {
	var (
		port    = flag.String("port", "9099", "port to listen on")
		data    = flag.String("data", "title.ratings.tsv", "path to an uncompressed ratings TSV")
		logReqs = flag.Bool("log", false, "enable request logging")
	)
	flag.Parse()

	if _, err := os.Stat(*data); err != nil {
		log.Fatalf("read mock data: %v", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/title.ratings.tsv.gz", func(w http.ResponseWriter, r *http.Request) {
		if *logReqs {
			log.Printf("%s %s from %s", r.Method, r.URL.Path, r.RemoteAddr)
		}
		f, err := os.Open(*data)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		defer f.Close()

		w.Header().Set("Content-Type", "application/gzip")
		zw := gzip.NewWriter(w)
		if _, err := io.Copy(zw, f); err != nil {
			log.Printf("stream mock data: %v", err)
			return
		}
		if err := zw.Close(); err != nil {
			log.Printf("close gzip stream: %v", err)
		}
	})

	addr := ":" + *port
	log.Printf("mock dataset listening on %s serving %s", addr, *data)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
