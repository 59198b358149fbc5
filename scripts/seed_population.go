// seed_population.go is a standalone script to generate a synthetic scored
// population and submit it to the Themis API.
//
// Usage:
//
//	go run scripts/seed_population.go -api http://localhost:8700 -groups 3 -size 200 -noise 0.2
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
)

type sample struct {
	Score    float64 `json:"score"`
	Positive bool    `json:"positive"`
}

type group struct {
	Name    string   `json:"name"`
	Samples []sample `json:"samples"`
}

type population struct {
	Name   string  `json:"name"`
	Source string  `json:"source"`
	Groups []group `json:"groups"`
}

func main() {
	apiURL := flag.String("api", "http://localhost:8700", "Themis API base URL")
	name := flag.String("name", "synthetic", "population name")
	groups := flag.Int("groups", 2, "number of demographic groups")
	size := flag.Int("size", 100, "samples per group")
	base := flag.Float64("base-rate", 0.3, "fraction of positives per group")
	noise := flag.Float64("noise", 0.15, "score noise; 0 gives a perfect ranking")
	seed := flag.Int64("seed", 1, "rng seed")
	dryRun := flag.Bool("dry-run", false, "print the population without posting")
	flag.Parse()

	rng := rand.New(rand.NewSource(*seed))
	pop := population{Name: *name, Source: "seed-script"}
	for g := 0; g < *groups; g++ {
		gr := group{Name: fmt.Sprintf("group-%c", 'a'+g)}
		for i := 0; i < *size; i++ {
			positive := rng.Float64() < *base
			score := 0.25
			if positive {
				score = 0.75
			}
			score += *noise * rng.NormFloat64()
			if score < 0 {
				score = 0
			}
			if score > 1 {
				score = 1
			}
			gr.Samples = append(gr.Samples, sample{Score: score, Positive: positive})
		}
		pop.Groups = append(pop.Groups, gr)
	}

	body, err := json.MarshalIndent(pop, "", "  ")
	if err != nil {
		log.Fatalf("marshal population: %v", err)
	}

	if *dryRun {
		fmt.Println(string(body))
		return
	}

	resp, err := http.Post(*apiURL+"/api/v1/populations", "application/json", bytes.NewReader(body))
	if err != nil {
		log.Fatalf("post population: %v", err)
	}
	defer resp.Body.Close()

	out, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusCreated {
		log.Fatalf("unexpected status %d: %s", resp.StatusCode, out)
	}
	fmt.Println(string(out))
}
