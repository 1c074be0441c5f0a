package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/completion-report-api/internal/dto"
	"github.com/noah-isme/completion-report-api/internal/models"
	appErrors "github.com/noah-isme/completion-report-api/pkg/errors"
	"github.com/noah-isme/completion-report-api/pkg/export"
)

// Exporter renders a dataset into a downloadable document.
type Exporter interface {
	Render(data export.Dataset) ([]byte, error)
	ContentType() string
	Extension() string
}

// Export renders every tracked user of the progress report matching q, ignoring
// paging, in the requested format.
func (s *ReportService) Export(ctx context.Context, q dto.CompletionReportQuery, format string) (*dto.ExportFile, error) {
	exporter, ok := s.exporters[strings.ToLower(format)]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	info, query, err := s.prepare(ctx, q)
	if err != nil {
		return nil, err
	}
	query.LimitFrom, query.LimitNum = 0, 0

	activities, err := info.GetActivities(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load activities")
	}
	users, err := info.GetProgressAll(ctx, query)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load progress")
	}

	body, err := exporter.Render(progressDataset(info.Course(), info.Filter(), activities, users))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	s.viewed(ctx, models.EventReportExported, info, q.ViewerID)
	course := info.Course()
	return &dto.ExportFile{
		Filename:    fmt.Sprintf("completion-%s-%s.%s", slug(course.ShortName, course.ID), info.Filter(), exporter.Extension()),
		ContentType: exporter.ContentType(),
		Body:        body,
	}, nil
}

func progressDataset(course models.Course, filter models.EnrolStatusFilter, activities []models.Activity, users []models.UserProgress) export.Dataset {
	headers := []string{"Name", "Email", "ID number", "Enrolment status"}
	for _, activity := range activities {
		headers = append(headers, activity.Name)
	}
	headers = append(headers, "Completion date")

	rows := make([][]string, 0, len(users))
	for _, user := range users {
		row := []string{user.FullName(), user.Email, user.IDNumber, user.EnrolStatus.Title()}
		for _, activity := range activities {
			state := models.CompletionIncomplete
			if progress, ok := user.Progress[activity.ID]; ok {
				state = progress.CompletionState
			}
			row = append(row, models.CompletionStateTitle(state))
		}
		completed := ""
		if user.TimeCompleted != nil && *user.TimeCompleted > 0 {
			completed = time.Unix(*user.TimeCompleted, 0).UTC().Format("2006-01-02")
		}
		rows = append(rows, append(row, completed))
	}

	return export.Dataset{
		Title:   fmt.Sprintf("%s: activity completion (%s)", course.FullName, filter.Title()),
		Headers: headers,
		Rows:    rows,
	}
}

func slug(name string, id int64) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case b.Len() > 0 && !strings.HasSuffix(b.String(), "-"):
			b.WriteByte('-')
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		return fmt.Sprintf("course-%d", id)
	}
	return out
}
