// Package memory is a ReportWriter that keeps sheets in process, for local
// runs without Google credentials and for tests.
package memory

import (
	"context"
	"sort"
	"sync"
)

type Writer struct {
	mu     sync.Mutex
	sheets map[string][][]any
}

func New() *Writer {
	return &Writer{sheets: make(map[string][][]any)}
}

// WriteReport replaces the sheet's rows.
func (w *Writer) WriteReport(_ context.Context, sheetName string, rows [][]any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	cp := make([][]any, len(rows))
	for i, r := range rows {
		cp[i] = append([]any(nil), r...)
	}
	w.sheets[sheetName] = cp
	return nil
}

// Sheet returns the rows last written to name.
func (w *Writer) Sheet(name string) ([][]any, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	rows, ok := w.sheets[name]
	return rows, ok
}

// Names lists the written sheets in order.
func (w *Writer) Names() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.sheets))
	for n := range w.sheets {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
