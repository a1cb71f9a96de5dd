package report

import (
	"context"
	"fmt"
	"time"

	"go-propflow/internal/features/process"
	"go-propflow/internal/features/task"

	"github.com/xuri/excelize/v2"
	"go.mongodb.org/mongo-driver/bson"
)

// ReportService builds the progress workbook managers pull for acquisition
// reviews: one row per live instance plus a per-stage breakdown sheet.
type ReportService interface {
	ExportProgress(ctx context.Context, status string) ([]byte, string, error)
}

type ReportServiceImpl struct {
	ProcessRepo process.ProcessRepository
	TaskRepo    task.TaskRepository

	now func() time.Time
}

func NewReportService(processRepo process.ProcessRepository, taskRepo task.TaskRepository) ReportService {
	return &ReportServiceImpl{
		ProcessRepo: processRepo,
		TaskRepo:    taskRepo,
		now:         time.Now,
	}
}

const maxReportRows = 10000

func (s *ReportServiceImpl) ExportProgress(ctx context.Context, status string) ([]byte, string, error) {
	filter := bson.M{}
	if status != "" {
		filter["current_status"] = status
	}
	instances, _, err := s.ProcessRepo.List(ctx, filter, 1, maxReportRows)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	const processSheet = "Processes"
	index, err := f.NewSheet(processSheet)
	if err != nil {
		return nil, "", err
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})

	processHeaders := []string{"External Ref", "Status", "Template", "Percent Complete", "Approved At", "Completed At"}
	writeHeader(f, processSheet, processHeaders, headerStyle)

	const stageSheet = "Stages"
	if _, err := f.NewSheet(stageSheet); err != nil {
		return nil, "", err
	}
	stageHeaders := []string{"External Ref", "Stage", "Order", "Tasks", "Done", "Percent"}
	writeHeader(f, stageSheet, stageHeaders, headerStyle)

	stageRow := 2
	for i, instance := range instances {
		writeRow(f, processSheet, i+2, []interface{}{
			instance.ExternalRef,
			string(instance.CurrentStatus),
			instance.TemplateName,
			instance.PercentComplete,
			formatTime(instance.ApprovedAt),
			formatTime(instance.CompletedAt),
		})

		tasks, err := s.TaskRepo.ListByInstance(ctx, instance.ID)
		if err != nil {
			return nil, "", err
		}
		for _, stage := range process.Stages(tasks) {
			writeRow(f, stageSheet, stageRow, []interface{}{
				instance.ExternalRef,
				stage.Name,
				stage.Order,
				stage.Total,
				stage.Done,
				stage.Percent,
			})
			stageRow++
		}
	}

	for i := range processHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(processSheet, col, col, 18)
		f.SetColWidth(stageSheet, col, col, 18)
	}

	buffer, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("progress_%s.xlsx", s.now().Format("20060102_150405"))
	return buffer.Bytes(), filename, nil
}

func writeHeader(f *excelize.File, sheet string, headers []string, style int) {
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, style)
	}
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) {
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		f.SetCellValue(sheet, cell, v)
	}
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02 15:04:05")
}
