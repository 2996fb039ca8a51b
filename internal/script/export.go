// Package script exports an executed plan as a standalone playwright
// script, so a resolved flow can be replayed without the resolution
// pipeline or a model in the loop.
package script

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ssvmg10-debug/UI-automation/internal/exec"
	"github.com/ssvmg10-debug/UI-automation/internal/step"
)

const header = `package main

import (
	"log"
	"time"

	"github.com/playwright-community/playwright-go"
)

func main() {
	pw, err := playwright.Run()
	if err != nil {
		log.Fatalf("start playwright: %v", err)
	}
	defer pw.Stop()
	browser, err := pw.Chromium.Launch()
	if err != nil {
		log.Fatalf("launch: %v", err)
	}
	defer browser.Close()
	page, err := browser.NewPage()
	if err != nil {
		log.Fatalf("new page: %v", err)
	}
`

const footer = `	_ = time.Sleep
	log.Println("done")
}
`

// Generate renders the plan as Go source. When results are given, matched
// element texts override the planner's target phrasing, since those are
// what the resolver actually clicked.
func Generate(steps []step.Step, results []exec.StepResult) string {
	matched := make(map[int]string, len(results))
	for _, res := range results {
		if res.Success && !res.Skipped && res.Matched != "" {
			matched[res.Index] = res.Matched
		}
	}

	var b strings.Builder
	b.WriteString(header)
	for i, st := range steps {
		target := st.Target
		if m, ok := matched[i]; ok && !strings.HasPrefix(m, "<") {
			target = m
		}
		switch st.Action {
		case step.Navigate:
			fmt.Fprintf(&b, "\tif _, err := page.Goto(%s); err != nil {\n\t\tlog.Fatalf(\"step %d: %%v\", err)\n\t}\n", quote(st.Target), i)
		case step.Click:
			fmt.Fprintf(&b, "\tif err := page.GetByText(%s).First().Click(); err != nil {\n\t\tlog.Fatalf(\"step %d: %%v\", err)\n\t}\n", quote(target), i)
		case step.Type:
			fmt.Fprintf(&b, "\tif err := page.GetByPlaceholder(%s).First().Fill(%s); err != nil {\n", quote(target), quote(st.Value))
			fmt.Fprintf(&b, "\t\tif err := page.GetByLabel(%s).First().Fill(%s); err != nil {\n\t\t\tlog.Fatalf(\"step %d: %%v\", err)\n\t\t}\n\t}\n", quote(target), quote(st.Value), i)
		case step.Select:
			fmt.Fprintf(&b, "\tif _, err := page.GetByLabel(%s).First().SelectOption(playwright.SelectOptionValues{ValuesOrLabels: &[]string{%s}}); err != nil {\n\t\tlog.Fatalf(\"step %d: %%v\", err)\n\t}\n", quote(target), quote(st.Value), i)
		case step.Wait:
			if d, ok := st.WaitDuration(); ok {
				fmt.Fprintf(&b, "\ttime.Sleep(%d * time.Millisecond)\n", d.Milliseconds())
			} else {
				fmt.Fprintf(&b, "\tif err := page.GetByText(%s).First().WaitFor(); err != nil {\n\t\tlog.Fatalf(\"step %d: %%v\", err)\n\t}\n", quote(st.Target), i)
			}
		}
	}
	b.WriteString(footer)
	return b.String()
}

func quote(s string) string {
	return strconv.Quote(s)
}
