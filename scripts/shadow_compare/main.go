package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/completion-report-api/internal/models"
)

// usersEnvelope is the subset of the tracked users response the comparison needs.
type usersEnvelope struct {
	Data struct {
		Users []struct {
			ID int64 `json:"id"`
		} `json:"users"`
		Total int `json:"total"`
	} `json:"data"`
}

type comparison struct {
	CourseID  int64
	Filter    models.EnrolStatusFilter
	TotalA    int
	TotalB    int
	OnlyA     []int64
	OnlyB     []int64
	Error     error
	DurationA time.Duration
	DurationB time.Duration
}

func (c comparison) matches() bool {
	return c.Error == nil && c.TotalA == c.TotalB && len(c.OnlyA) == 0 && len(c.OnlyB) == 0
}

func main() {
	var (
		baseA   string
		baseB   string
		token   string
		courses string
		timeout time.Duration
	)

	flag.StringVar(&baseA, "base-a", "http://localhost:8080/api/v1", "Reference deployment base URL")
	flag.StringVar(&baseB, "base-b", "http://localhost:8081/api/v1", "Candidate deployment base URL")
	flag.StringVar(&token, "token", os.Getenv("REPORT_TOKEN"), "Bearer token sent to both deployments")
	flag.StringVar(&courses, "courses", "", "Comma separated course ids")
	flag.DurationVar(&timeout, "timeout", 30*time.Second, "HTTP client timeout")
	flag.Parse()

	courseIDs, err := parseCourseIDs(courses)
	if err != nil {
		log.Fatalf("invalid -courses: %v", err)
	}

	client := &http.Client{Timeout: timeout}
	var (
		results []comparison
		diffs   int
	)
	for _, courseID := range courseIDs {
		for _, filter := range models.EnrolStatusFilters {
			comp := compareFilter(client, baseA, baseB, token, courseID, filter)
			if !comp.matches() {
				diffs++
			}
			results = append(results, comp)
		}
	}

	printReport(results)
	fmt.Printf("Filter diffs: %d of %d\n", diffs, len(results))
	if diffs > 0 {
		os.Exit(1)
	}
}

func parseCourseIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("bad course id %q", part)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, errors.New("no course ids given")
	}
	return ids, nil
}

func compareFilter(client *http.Client, baseA, baseB, token string, courseID int64, filter models.EnrolStatusFilter) comparison {
	comp := comparison{CourseID: courseID, Filter: filter}
	path := fmt.Sprintf("/courses/%d/completion/users?enrolstat=%s&limit=5000", courseID, filter)

	a, durA, err := fetchUsers(client, baseA, path, token)
	comp.DurationA = durA
	if err != nil {
		comp.Error = fmt.Errorf("reference request failed: %w", err)
		return comp
	}
	b, durB, err := fetchUsers(client, baseB, path, token)
	comp.DurationB = durB
	if err != nil {
		comp.Error = fmt.Errorf("candidate request failed: %w", err)
		return comp
	}

	comp.TotalA, comp.TotalB = a.Data.Total, b.Data.Total
	comp.OnlyA, comp.OnlyB = diffIDs(userIDs(a), userIDs(b))
	return comp
}

func fetchUsers(client *http.Client, base, path, token string) (*usersEnvelope, time.Duration, error) {
	req, err := http.NewRequest(http.MethodGet, strings.TrimRight(base, "/")+path, nil)
	if err != nil {
		return nil, 0, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	elapsed := time.Since(start)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, elapsed, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, elapsed, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var env usersEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, elapsed, fmt.Errorf("decode body: %w", err)
	}
	return &env, elapsed, nil
}

func userIDs(env *usersEnvelope) []int64 {
	ids := make([]int64, len(env.Data.Users))
	for i, u := range env.Data.Users {
		ids[i] = u.ID
	}
	return ids
}

// diffIDs returns the sorted ids present only in a and only in b.
func diffIDs(a, b []int64) (onlyA, onlyB []int64) {
	inA := make(map[int64]struct{}, len(a))
	for _, id := range a {
		inA[id] = struct{}{}
	}
	inB := make(map[int64]struct{}, len(b))
	for _, id := range b {
		inB[id] = struct{}{}
		if _, ok := inA[id]; !ok {
			onlyB = append(onlyB, id)
		}
	}
	for _, id := range a {
		if _, ok := inB[id]; !ok {
			onlyA = append(onlyA, id)
		}
	}
	sort.Slice(onlyA, func(i, j int) bool { return onlyA[i] < onlyA[j] })
	sort.Slice(onlyB, func(i, j int) bool { return onlyB[i] < onlyB[j] })
	return onlyA, onlyB
}

func printReport(results []comparison) {
	fmt.Println("Enrolment Filter Compare Report")
	fmt.Println("===============================")
	for _, res := range results {
		status := "OK"
		if res.Error != nil {
			status = "ERROR"
		} else if !res.matches() {
			status = "DIFF"
		}
		fmt.Printf("[%s] course %d enrolstat=%s\n", status, res.CourseID, res.Filter)
		if res.Error != nil {
			fmt.Printf("  Error: %v\n", res.Error)
			continue
		}
		fmt.Printf("  Totals: %d (%s) vs %d (%s)\n", res.TotalA, res.DurationA, res.TotalB, res.DurationB)
		if len(res.OnlyA) > 0 {
			fmt.Printf("  Only in reference: %v\n", res.OnlyA)
		}
		if len(res.OnlyB) > 0 {
			fmt.Printf("  Only in candidate: %v\n", res.OnlyB)
		}
	}
}
