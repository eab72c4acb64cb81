// Command rtop is a terminal dashboard for a running actorhost process: it
// polls the admin inspector's /snapshot endpoint and renders a live table
// of registered services, the same "top for the runtime" niche the
// original's console diagnostics covered with printf-style dumps.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"
)

type snapshot struct {
	Services []struct {
		Handle uint32 `json:"handle"`
	} `json:"services"`
	Env map[string]string `json:"env"`
	At  time.Time         `json:"at"`
}

func main() {
	addr := flag.String("addr", "http://127.0.0.1:8080", "actorhost admin inspector base URL")
	flag.Parse()

	if err := ui.Init(); err != nil {
		fmt.Fprintln(os.Stderr, "rtop: failed to init terminal:", err)
		os.Exit(1)
	}
	defer ui.Close()

	table := widgets.NewTable()
	table.Title = "services"
	table.Rows = [][]string{{"handle"}}
	table.SetRect(0, 0, 60, 20)

	footer := widgets.NewParagraph()
	footer.Title = "status"
	footer.SetRect(0, 20, 60, 23)

	render := func() {
		snap, err := fetch(*addr)
		if err != nil {
			footer.Text = "fetch error: " + err.Error()
			ui.Render(footer)
			return
		}
		rows := [][]string{{"handle"}}
		for _, s := range snap.Services {
			rows = append(rows, []string{fmt.Sprintf("%d", s.Handle)})
		}
		table.Rows = rows
		footer.Text = fmt.Sprintf("services: %d  last update: %s", len(snap.Services), snap.At.Format(time.Kitchen))
		ui.Render(table, footer)
	}

	render()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	events := ui.PollEvents()
	for {
		select {
		case e := <-events:
			switch e.ID {
			case "q", "<C-c>":
				return
			}
		case <-ticker.C:
			render()
		}
	}
}

func fetch(addr string) (*snapshot, error) {
	resp, err := http.Get(addr + "/snapshot")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	var snap snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return nil, err
	}
	return &snap, nil
}
