package export

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/smilefoto/klicka/internal/app"
	"github.com/smilefoto/klicka/internal/models"
	"github.com/smilefoto/klicka/internal/reconcile"
)

// GSheetExporter periodically writes a per-event attendance matrix to the
// studio's spreadsheet, so back office sees progress without touching the
// field devices.
type GSheetExporter struct {
	service       *app.Service
	scheduler     *gocron.Scheduler
	sheetsService *sheets.Service
}

func NewGSheetExporter(service *app.Service) (*GSheetExporter, error) {
	ctx := context.Background()
	scheduler := gocron.NewScheduler(time.UTC)

	for _, cfg := range service.Config.GSheet {
		svc, err := sheets.NewService(ctx, option.WithCredentialsFile(cfg.CredentialsPath))
		if err != nil {
			return nil, fmt.Errorf("failed to create sheets service: %w", err)
		}

		exporter := &GSheetExporter{
			service:       service,
			scheduler:     scheduler,
			sheetsService: svc,
		}

		job := cfg
		if _, err := scheduler.Cron(cfg.Schedule).Do(func() {
			if err := exporter.Export(&job); err != nil {
				logger.Error.Printf("Export of event %s failed: %v", job.EventID, err)
			}
		}); err != nil {
			return nil, fmt.Errorf("failed to schedule export: %w", err)
		}
	}

	scheduler.StartAsync()
	return nil, nil
}

// Export writes one row per student: class, name, and how the event
// accounted for them (session status or still missing).
func (e *GSheetExporter) Export(cfg *app.GSheetConfig) error {
	ctx := context.Background()
	eventID := cfg.EventID

	students, err := e.service.Repos.Students.List(ctx, eventID)
	if err != nil {
		return err
	}
	sessions, err := e.service.Repos.Sessions.List(ctx, eventID)
	if err != nil {
		return err
	}
	qrCodes, err := e.service.Repos.QRCodes.List(ctx, eventID)
	if err != nil {
		return err
	}

	missing := make(map[string]bool)
	for _, row := range reconcile.Unphotographed(students, sessions, qrCodes) {
		missing[row.StudentID] = true
	}

	statusByStudent := make(map[string]models.SessionStatus)
	for _, session := range sessions {
		for _, studentID := range session.StudentIDs {
			statusByStudent[studentID] = session.Status
		}
	}

	values := [][]interface{}{
		{"student", "name", "class", "status"},
	}
	for _, s := range students {
		status := "missing"
		if !missing[s.ID] {
			if st, ok := statusByStudent[s.ID]; ok {
				status = string(st)
			} else {
				status = "accounted"
			}
		}
		values = append(values, []interface{}{s.ID, s.Name, s.Class, status})
	}

	writeRange := fmt.Sprintf("%s!A1", cfg.SheetName)
	_, err = e.sheetsService.Spreadsheets.Values.Update(
		cfg.SpreadsheetID,
		writeRange,
		&sheets.ValueRange{Values: values},
	).ValueInputOption("RAW").Do()
	if err != nil {
		return fmt.Errorf("failed to write sheet: %w", err)
	}

	logger.Info.Printf("Exported %d students for event %s", len(students), eventID)
	return nil
}
