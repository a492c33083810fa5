// The field tool drives the whole on-venue workflow from a terminal:
// pull the event, scan codes, record manual captures, review who is still
// missing, finalize and push everything back up.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/smilefoto/klicka/internal/app"
	"github.com/smilefoto/klicka/internal/models"
	"github.com/smilefoto/klicka/internal/syncer"
)

const usage = `usage: field <command> [flags]

commands:
  sync-down  pull event, roster, qr codes and preferences from the server
  scan       record a qr capture (scanned payload or typed code)
  manual     record a manual capture for selected students
  search     search the local roster by name
  missing    list students not yet accounted for
  finalize   assign terminal statuses to missing students and close the event
  finish     retry only the remote finish call
  sync-up    push all captured sessions to the server
  status     show local counts and last sync/upload/scan times
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	command := os.Args[1]
	flags := flag.NewFlagSet(command, flag.ExitOnError)
	configPath := flags.String("config", "config.toml", "Path to config file")
	eventID := flags.String("event", "", "Event id")

	var code, payload, status, students, photoType, query, assign, all string
	switch command {
	case "scan":
		flags.StringVar(&code, "code", "", "Typed qr code value")
		flags.StringVar(&payload, "payload", "", "Raw scanned qr payload (JSON)")
		flags.StringVar(&status, "status", "present", "Observation status: present or absent")
	case "manual":
		flags.StringVar(&students, "students", "", "Comma-separated student ids")
		flags.StringVar(&photoType, "type", "", "Photo type: individual, with_sibling, with_friend, group (default: the family's ordered type)")
	case "search":
		flags.StringVar(&query, "q", "", "Name substring to search for")
	case "finalize":
		flags.StringVar(&assign, "assign", "", "Per-student statuses, e.g. s1=absent,s2=refused")
		flags.StringVar(&all, "all", "", "One status for every missing student")
	case "sync-down", "sync-up", "missing", "finish", "status":
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	flags.Parse(os.Args[2:])

	if *eventID == "" {
		logger.Error.Fatalf("-event is required")
	}

	service, err := app.NewService(*configPath)
	if err != nil {
		logger.Error.Fatalf("Failed to init service: %v", err)
	}
	defer service.Close()

	if listen := service.Config.Metrics.Listen; listen != "" {
		go func() {
			http.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(listen, nil); err != nil {
				logger.Error.Printf("metrics listener failed: %v", err)
			}
		}()
	}

	ctx := context.Background()
	if err := run(ctx, service, command, runArgs{
		eventID:   *eventID,
		code:      code,
		payload:   payload,
		status:    status,
		students:  students,
		photoType: photoType,
		query:     query,
		assign:    assign,
		all:       all,
	}); err != nil {
		logger.Error.Fatalf("%s failed: %v", command, err)
	}
}

type runArgs struct {
	eventID   string
	code      string
	payload   string
	status    string
	students  string
	photoType string
	query     string
	assign    string
	all       string
}

func run(ctx context.Context, service *app.Service, command string, args runArgs) error {
	switch command {
	case "sync-down":
		if err := service.Syncer.SyncDown(ctx, args.eventID); err != nil {
			return err
		}
		fmt.Println("sync-down ok")
		return nil

	case "scan":
		return runScan(ctx, service, args)

	case "manual":
		ids := splitList(args.students)
		session, err := service.Capture.CaptureManual(ctx, args.eventID, ids, models.PhotoType(args.photoType))
		if err != nil {
			return err
		}
		fmt.Printf("recorded %s for %d students\n", session.SessionID, len(session.StudentIDs))
		return nil

	case "search":
		matches, err := service.Capture.SearchStudents(ctx, args.eventID, args.query)
		if err != nil {
			return err
		}
		for _, s := range matches {
			fmt.Printf("%s\t%s\t%s\n", s.ID, s.Name, s.Class)
		}
		return nil

	case "missing":
		rows, err := service.Finalizer.Rows(ctx, args.eventID)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			fmt.Println("everyone is accounted for")
			return nil
		}
		for _, row := range rows {
			qr := "-"
			if row.QRCodeID != nil {
				qr = *row.QRCodeID
			}
			fmt.Printf("%s\t%s\t%s\tqr=%s\n", row.StudentID, row.Name, row.Class, qr)
		}
		return nil

	case "finalize":
		return runFinalize(ctx, service, args)

	case "finish":
		if err := service.Finalizer.FinishOnly(ctx, args.eventID); err != nil {
			return err
		}
		fmt.Println("event finished")
		return nil

	case "sync-up":
		result, err := service.Syncer.SyncUp(ctx, args.eventID)
		if err == syncer.ErrNothingToSend {
			fmt.Println("nothing to send")
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Printf("server accepted %d sessions: %s\n", result.AcceptedCount, result.Summary)
		return nil

	case "status":
		status, err := service.EventStatus(ctx, args.eventID)
		if err != nil {
			return err
		}
		printStatus(status)
		return nil
	}
	return fmt.Errorf("unknown command %q", command)
}

func runScan(ctx context.Context, service *app.Service, args runArgs) error {
	status := models.SessionStatus(args.status)

	var session *models.PhotoSession
	var err error
	switch {
	case args.payload != "":
		session, err = service.Capture.ScanPayload(ctx, args.eventID, args.payload, status)
	case args.code != "":
		session, err = service.Capture.CaptureQR(ctx, args.eventID, args.code, status)
	default:
		return fmt.Errorf("scan needs -payload or -code")
	}
	if err != nil {
		return err
	}
	fmt.Printf("recorded %s (%s) for %d students\n", session.SessionID, session.Status, len(session.StudentIDs))
	return nil
}

func runFinalize(ctx context.Context, service *app.Service, args runArgs) error {
	rows, err := service.Finalizer.Rows(ctx, args.eventID)
	if err != nil {
		return err
	}

	assignments := make(map[string]models.SessionStatus)
	if args.all != "" {
		for _, row := range rows {
			assignments[row.StudentID] = models.SessionStatus(args.all)
		}
	}
	for _, pair := range splitList(args.assign) {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("bad assignment %q, want student=status", pair)
		}
		assignments[parts[0]] = models.SessionStatus(parts[1])
	}

	result, err := service.Finalizer.Finalize(ctx, args.eventID, assignments)
	if err == nil {
		fmt.Printf("finalized: %d sessions written, %d remaining\n", result.Upserted, result.Remaining)
		return nil
	}
	if result != nil && !result.Finished {
		// Local sessions are durable; only the finish call needs a retry.
		fmt.Printf("finalized locally (%d sessions written) but: %v\n", result.Upserted, err)
		fmt.Println("run `field finish` once the server is reachable")
		return nil
	}
	return err
}

func printStatus(status *app.EventStatus) {
	name := status.EventName
	if name == "" {
		name = "(never synced)"
	}
	fmt.Printf("event:          %s %s\n", status.EventID, name)
	fmt.Printf("finished:       %v\n", status.IsFinished)
	fmt.Printf("students:       %d\n", status.Students)
	fmt.Printf("sessions:       %d\n", status.Sessions)
	fmt.Printf("unphotographed: %d\n", status.Unphotographed)
	fmt.Printf("last sync:      %s\n", formatStamp(status.LastSync))
	fmt.Printf("last upload:    %s\n", formatStamp(status.LastUpload))
	fmt.Printf("last scan:      %s\n", formatStamp(status.LastScan))
}

func formatStamp(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
