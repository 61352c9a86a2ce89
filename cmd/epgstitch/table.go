// SPDX-License-Identifier: MIT

package main

import (
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/pkepg/epgstitch/internal/jobs"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)
	return tw.Render()
}

func channelTable(r *jobs.Report) string {
	rows := make([][]string, 0, len(r.Channels))
	for _, c := range r.Channels {
		note := strings.Join(c.Outputs, ", ")
		if c.Err != nil {
			note = c.Err.Error()
		}
		rows = append(rows, []string{
			c.ID,
			string(c.Outcome),
			strconv.Itoa(c.Programmes),
			strconv.Itoa(c.Dropped),
			strconv.Itoa(c.Filled),
			strconv.Itoa(c.Enriched),
			c.Duration.Round(time.Millisecond).String(),
			note,
		})
	}
	return renderTable(
		[]string{"Channel", "Outcome", "Programmes", "Dropped", "Filled", "Enriched", "Took", "Outputs / error"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignLeft},
	)
}

func guideTable(results []jobs.GuideResult) string {
	rows := make([][]string, 0, len(results))
	for _, g := range results {
		status := "written"
		if g.Err != nil {
			status = g.Err.Error()
		}
		rows = append(rows, []string{
			g.Name,
			g.Output,
			strconv.Itoa(g.Merged),
			strconv.Itoa(g.Skipped),
			strconv.Itoa(g.Channels),
			strconv.Itoa(g.Programmes),
			status,
		})
	}
	return renderTable(
		[]string{"Guide", "Output", "Merged", "Skipped", "Channels", "Programmes", "Status"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft},
	)
}

func feedTable(results []jobs.FeedResult) string {
	rows := make([][]string, 0, len(results))
	for _, f := range results {
		status := f.Outcome
		if f.Err != nil {
			status += ": " + f.Err.Error()
		}
		rows = append(rows, []string{f.Name, f.Output, strconv.Itoa(f.Bytes), status})
	}
	return renderTable(
		[]string{"Feed", "Output", "Bytes", "Status"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
	)
}
