package service

import (
	"bytes"
	"context"
	"strconv"

	"github.com/theatro/theatro/internal/domain/dto"
	"github.com/theatro/theatro/internal/domain/entity"
	"github.com/theatro/theatro/internal/domain/utils/location"
	"github.com/theatro/theatro/pkg/logger/types"
	"github.com/xuri/excelize/v2"
)

type eventApplicationsProvider interface {
	EventApplications(ctx context.Context, eventID string, filter dto.ApplicationFilter) (*dto.EventApplications, error)
}

type ExportService struct {
	logger    *types.Logger
	lifecycle eventApplicationsProvider
}

func NewExportService(logger *types.Logger, lifecycle eventApplicationsProvider) *ExportService {
	return &ExportService{
		logger:    logger,
		lifecycle: lifecycle,
	}
}

// ExportToXLSX renders the applications of an event as a spreadsheet.
func (s *ExportService) ExportToXLSX(ctx context.Context, eventID string) (*bytes.Buffer, error) {
	applications, err := s.lifecycle.EventApplications(ctx, eventID, dto.ApplicationFilter{})
	if err != nil {
		return nil, err
	}

	buf, err := applicationsToXLSX(applications.Event, applications.Applications)
	if err != nil {
		s.logger.Errorf("failed to render applications of event %s: %v", eventID, err)
		return nil, err
	}
	return buf, nil
}

const dateLayout = "02/01/2006 15:04"

func applicationsToXLSX(event *entity.Event, views []dto.ApplicationView) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet, third := "Réponses", "Disponibilité"
	if event.IsShow() {
		sheet, third = "Candidatures", "Rôle"
	}
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	headers := []string{"Membre", "Mail", third, "Statut", "Soumis le", "Traité le", "Traité par", "Notes"}
	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		_ = f.SetCellValue(sheet, cell, header)
	}

	for i, view := range views {
		row := strconv.Itoa(i + 2)
		detail := string(view.Availability)
		if event.IsShow() {
			detail = view.RoleName
		}
		processedAt := ""
		if view.ProcessedAt != nil {
			processedAt = view.ProcessedAt.In(location.Location()).Format(dateLayout)
		}

		_ = f.SetCellValue(sheet, "A"+row, view.MemberName)
		_ = f.SetCellValue(sheet, "B"+row, view.MemberMail)
		_ = f.SetCellValue(sheet, "C"+row, detail)
		_ = f.SetCellValue(sheet, "D"+row, string(view.Status))
		_ = f.SetCellValue(sheet, "E"+row, view.SubmittedAt.In(location.Location()).Format(dateLayout))
		_ = f.SetCellValue(sheet, "F"+row, processedAt)
		_ = f.SetCellValue(sheet, "G"+row, view.ProcessedBy)
		_ = f.SetCellValue(sheet, "H"+row, view.Notes)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return &buf, nil
}
