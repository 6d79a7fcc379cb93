package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/danielpatrickdp/isp-dvfs/go-controller/internal/health"
	"github.com/danielpatrickdp/isp-dvfs/go-controller/internal/logging"
	"github.com/danielpatrickdp/isp-dvfs/go-controller/internal/state"
)

const timeFormat = "2006-01-02T15:04:05Z"

// #region main

func main() {
	dbPath := flag.String("db", "", "path to the state database")
	last := flag.Int("last", 20, "show N most recent rows")
	session := flag.String("session", "", "show one session with its applied floors and decisions")
	decisions := flag.Bool("decisions", false, "list decisions instead of sessions")
	category := flag.String("category", "", "filter decisions to one category")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	probe := flag.String("probe", "", "query the health service at addr and exit")
	flag.Parse()

	if *probe != "" {
		if err := runProbe(*probe); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/dvfs_state.db [--last N] [--session id] [--decisions [--category c]] [--json]")
		fmt.Fprintln(os.Stderr, "       inspect --probe host:port")
		os.Exit(2)
	}

	store, err := state.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	switch {
	case *session != "":
		err = runSessionMode(store, *session, *last, *jsonOut)
	case *decisions:
		err = runDecisionMode(store, logging.Filter{Category: *category, Limit: *last}, *jsonOut)
	default:
		err = runListMode(store, *last, *jsonOut)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region list-mode

type sessionRow struct {
	SessionID  string `json:"session_id"`
	Instance   int    `json:"instance"`
	HALVersion string `json:"hal_version,omitempty"`
	TableIndex int    `json:"table_index"`
	Static     string `json:"static"`
	Dynamic    string `json:"dynamic"`
	External   string `json:"external"`
	OpenedAt   string `json:"opened_at"`
	ClosedAt   string `json:"closed_at,omitempty"`
}

func runListMode(store *state.Store, last int, jsonOut bool) error {
	sessions, err := store.ListSessions(last)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Fprintln(os.Stderr, "no sessions found")
		return nil
	}

	// store returns newest first, reverse for chronological
	rows := make([]sessionRow, len(sessions))
	for i, s := range sessions {
		row, err := toSessionRow(store, s)
		if err != nil {
			return err
		}
		rows[len(sessions)-1-i] = row
	}

	if jsonOut {
		return printJSON(rows)
	}
	fmt.Printf("%-10s  %4s  %-5s  %5s  %8s  %8s  %8s  %-20s  %s\n",
		"Session", "Inst", "HAL", "Table", "Static", "Dynamic", "External", "Opened", "Closed")
	fmt.Printf("%-10s+-%4s+-%-5s+-%5s+-%8s+-%8s+-%8s+-%-20s+-%s\n",
		"----------", "----", "-----", "-----", "--------", "--------", "--------", "--------------------", "--------------------")
	for _, r := range rows {
		closed := r.ClosedAt
		if closed == "" {
			closed = "open"
		}
		fmt.Printf("%-10s  %4d  %-5s  %5d  %8s  %8s  %8s  %-20s  %s\n",
			shortID(r.SessionID), r.Instance, orDash(r.HALVersion), r.TableIndex,
			r.Static, r.Dynamic, r.External, r.OpenedAt, closed)
	}
	return nil
}

func toSessionRow(store *state.Store, s state.Session) (sessionRow, error) {
	active, err := store.GetActive(s.SessionID)
	if err != nil && !errors.Is(err, state.ErrNotFound) {
		return sessionRow{}, err
	}
	if errors.Is(err, state.ErrNotFound) {
		active = state.ActiveScenario{Static: -1, Dynamic: -1, External: -1}
	}
	row := sessionRow{
		SessionID:  s.SessionID,
		Instance:   s.Instance,
		HALVersion: s.HALVersion,
		TableIndex: s.TableIndex,
		Static:     scenarioCell(active.Static),
		Dynamic:    scenarioCell(active.Dynamic),
		External:   scenarioCell(active.External),
		OpenedAt:   s.OpenedAt.Format(timeFormat),
	}
	if !s.Open() {
		row.ClosedAt = s.ClosedAt.Format(timeFormat)
	}
	return row, nil
}

// #endregion list-mode

// #region session-mode

type sessionOutput struct {
	Session   sessionRow    `json:"session"`
	Applied   []appliedRow  `json:"applied"`
	Decisions []decisionRow `json:"decisions"`
}

type appliedRow struct {
	ApplyID   string         `json:"apply_id"`
	Category  string         `json:"category"`
	Scenario  string         `json:"scenario"`
	Floors    map[string]int `json:"floors"`
	CPUs      string         `json:"cpus,omitempty"`
	Throttled bool           `json:"throttled"`
	Writes    int            `json:"writes"`
	CreatedAt string         `json:"created_at"`
}

func runSessionMode(store *state.Store, id string, last int, jsonOut bool) error {
	s, err := store.GetSession(id)
	if err != nil {
		return fmt.Errorf("session %s: %w", id, err)
	}
	row, err := toSessionRow(store, s)
	if err != nil {
		return err
	}
	applied, err := store.ListApplied(id, last)
	if err != nil {
		return err
	}
	decisions, err := logging.ListDecisions(store.DB(), logging.Filter{SessionID: id, Limit: last})
	if err != nil {
		return err
	}

	out := sessionOutput{Session: row}
	for i := len(applied) - 1; i >= 0; i-- {
		a := applied[i]
		out.Applied = append(out.Applied, appliedRow{
			ApplyID:   a.ApplyID,
			Category:  a.Category,
			Scenario:  a.ScenarioName,
			Floors:    a.Floors,
			CPUs:      a.CPUs,
			Throttled: a.Throttled,
			Writes:    a.Writes,
			CreatedAt: a.CreatedAt.Format(timeFormat),
		})
	}
	for _, d := range decisions {
		out.Decisions = append(out.Decisions, toDecisionRow(d))
	}

	if jsonOut {
		return printJSON(out)
	}

	fmt.Printf("Session:  %s\n", row.SessionID)
	fmt.Printf("Instance: %d | HAL: %s | Table: %d\n", row.Instance, orDash(row.HALVersion), row.TableIndex)
	fmt.Printf("Active:   static=%s dynamic=%s external=%s\n", row.Static, row.Dynamic, row.External)
	fmt.Printf("Opened:   %s\n", row.OpenedAt)
	if row.ClosedAt != "" {
		fmt.Printf("Closed:   %s\n", row.ClosedAt)
	}

	fmt.Printf("\nApplied (%d):\n", len(out.Applied))
	for _, a := range out.Applied {
		mark := ""
		if a.Throttled {
			mark = " [throttled]"
		}
		fmt.Printf("  %s  %-8s  %-36s  writes=%d%s\n", a.CreatedAt, a.Category, a.Scenario, a.Writes, mark)
		fmt.Printf("    %s\n", formatFloors(a.Floors, a.CPUs))
	}

	fmt.Printf("\nDecisions (%d):\n", len(out.Decisions))
	printDecisionTable(out.Decisions)
	return nil
}

func formatFloors(floors map[string]int, cpus string) string {
	keys := make([]string, 0, len(floors))
	for k := range floors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys)+1)
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, floors[k]))
	}
	if cpus != "" {
		parts = append(parts, "cpus="+cpus)
	}
	return strings.Join(parts, " ")
}

// #endregion session-mode

// #region decision-mode

type decisionRow struct {
	SessionID string `json:"session_id"`
	Frame     int64  `json:"frame"`
	Category  string `json:"category"`
	Action    string `json:"action"`
	Scenario  string `json:"scenario,omitempty"`
	DualMode  string `json:"dual_mode,omitempty"`
	Ticks     int    `json:"ticks"`
	Reason    string `json:"reason,omitempty"`
	CreatedAt string `json:"created_at"`
}

func toDecisionRow(d logging.DecisionEntry) decisionRow {
	return decisionRow{
		SessionID: d.SessionID,
		Frame:     d.Frame,
		Category:  d.Category,
		Action:    d.Action,
		Scenario:  d.ScenarioName,
		DualMode:  d.DualMode,
		Ticks:     d.Ticks,
		Reason:    d.Reason,
		CreatedAt: d.CreatedAt.Format(timeFormat),
	}
}

func runDecisionMode(store *state.Store, f logging.Filter, jsonOut bool) error {
	entries, err := logging.ListDecisions(store.DB(), f)
	if err != nil {
		return err
	}
	rows := make([]decisionRow, len(entries))
	for i, d := range entries {
		rows[i] = toDecisionRow(d)
	}
	if jsonOut {
		return printJSON(rows)
	}
	if len(rows) == 0 {
		fmt.Fprintln(os.Stderr, "no decisions found")
		return nil
	}
	printDecisionTable(rows)
	return nil
}

func printDecisionTable(rows []decisionRow) {
	fmt.Printf("%-10s  %6s  %-8s  %-14s  %-36s  %-8s  %5s  %s\n",
		"Session", "Frame", "Category", "Action", "Scenario", "Dual", "Ticks", "Reason")
	fmt.Printf("%-10s+-%6s+-%-8s+-%-14s+-%-36s+-%-8s+-%5s+-%s\n",
		"----------", "------", "--------", "--------------", "------------------------------------", "--------", "-----", "------")
	for _, r := range rows {
		fmt.Printf("%-10s  %6d  %-8s  %-14s  %-36s  %-8s  %5d  %s\n",
			shortID(r.SessionID), r.Frame, r.Category, r.Action, orDash(r.Scenario),
			orDash(r.DualMode), r.Ticks, r.Reason)
	}
}

// #endregion decision-mode

// #region probe

func runProbe(addr string) error {
	client, err := health.NewClient(addr)
	if err != nil {
		return fmt.Errorf("connect %s: %w", addr, err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	status, err := client.Check(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%s: %s\n", addr, status)
	if status != "SERVING" {
		return fmt.Errorf("service not serving")
	}
	return nil
}

// #endregion probe

// #region output

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func scenarioCell(id int) string {
	if id < 0 {
		return "-"
	}
	return fmt.Sprintf("%d", id)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// #endregion output
