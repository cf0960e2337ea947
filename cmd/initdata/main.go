package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/brianvoe/gofakeit/v6"
)

// ----------------------------------------------------------------------------
// Config ---------------------------------------------------------------------
var (
	baseURL  = flag.String("url", env("API_BASE_URL", "http://localhost:8080"), "Server base URL")
	nNotes   = flag.Int("n", envInt("COUNT", 500), "How many notes to create")
	doneRate = flag.Int("done-rate", envInt("DONE_RATE", 30), "Percent of seeded notes marked done")
)

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			return i
		}
	}
	return def
}

// ----------------------------------------------------------------------------
// HTTP helpers ---------------------------------------------------------------
func doJSON(method, path string, body any) (*http.Response, error) {
	var rd io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rd = bytes.NewReader(b)
	}
	req, _ := http.NewRequest(method, *baseURL+path, rd)
	req.Header.Set("Content-Type", "application/json")
	return http.DefaultClient.Do(req)
}

func must(body io.ReadCloser) []byte {
	defer body.Close()
	data, _ := io.ReadAll(body)
	return data
}

// ----------------------------------------------------------------------------
// Main -----------------------------------------------------------------------
func main() {
	flag.Parse()
	gofakeit.Seed(time.Now().UnixNano())

	fmt.Printf("Seeding %d notes on %s (~%d%% done)\n", *nNotes, *baseURL, *doneRate)

	if err := createNotes(*nNotes, *doneRate); err != nil {
		fmt.Fprintln(os.Stderr, "FATAL:", err)
		os.Exit(1)
	}

	fmt.Println("✔ done")
}

// createNotes seeds notes through the public API so every seeded note is also
// broadcast to any connected realtime client.
func createNotes(total, doneRate int) error {
	for i := 1; i <= total; i++ {
		note := map[string]any{
			"content": gofakeit.Sentence(gofakeit.Number(3, 12)),
		}

		resp, err := doJSON(http.MethodPost, "/api/v1/notes", note)
		if err != nil {
			return err
		}
		if resp.StatusCode != http.StatusCreated {
			return fmt.Errorf("create note %d failed (%d): %s", i, resp.StatusCode, must(resp.Body))
		}

		var created struct {
			Data struct {
				ID string `json:"id"`
			} `json:"data"`
		}
		_ = json.Unmarshal(must(resp.Body), &created)

		if created.Data.ID != "" && gofakeit.Number(1, 100) <= doneRate {
			resp, err := doJSON(http.MethodPatch, "/api/v1/notes/"+created.Data.ID+"/mark-done", nil)
			if err != nil {
				return err
			}
			_ = must(resp.Body)
		}

		if i%50 == 0 || i == total {
			fmt.Printf("  … %d/%d\n", i, total)
		}
	}
	return nil
}
