package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

func getCmd(path string, args []string) {
	fs := flag.NewFlagSet(strings.TrimPrefix(path, "/admin/v1/"), flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	_ = fs.Parse(args)
	call(http.MethodGet, adminURL(*baseURL, path, nil))
}

func postCmd(path string, args []string) {
	fs := flag.NewFlagSet(strings.TrimPrefix(path, "/admin/v1/"), flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	_ = fs.Parse(args)
	call(http.MethodPost, adminURL(*baseURL, path, nil))
}

func sleepCmd(args []string) {
	fs := flag.NewFlagSet("sleep", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	location := fs.String("location", "", "sleep location (optional; server default when empty)")
	_ = fs.Parse(args)

	q := url.Values{}
	if loc := strings.TrimSpace(*location); loc != "" {
		q.Set("location", loc)
	}
	call(http.MethodPost, adminURL(*baseURL, "/admin/v1/sleep", q))
}

func adminURL(base, path string, q url.Values) string {
	u := strings.TrimRight(strings.TrimSpace(base), "/") + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

func call(method, u string) {
	req, err := http.NewRequest(method, u, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		os.Exit(2)
	}
	cl := &http.Client{Timeout: 10 * time.Second}
	resp, err := cl.Do(req)
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	fmt.Println(strings.TrimSpace(string(b)))
	if resp.StatusCode/100 != 2 {
		os.Exit(1)
	}
}
