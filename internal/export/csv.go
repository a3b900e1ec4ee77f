package export

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/yukikurage/taskgenie-api/internal/constants"
	"github.com/yukikurage/taskgenie-api/internal/models"
)

// Header is the first row of every export.
var Header = []string{"Title", "Description", "Category", "Priority", "Status", "Completed", "Due Date", "Created At", "Tags"}

// WriteCSV writes tasks as CSV rows in the order given.
func WriteCSV(w io.Writer, tasks []models.Task) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}

	for _, task := range tasks {
		if err := cw.Write(Row(task)); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// Row renders a single task. Dates are YYYY-MM-DD in UTC; a missing due date is empty.
func Row(task models.Task) []string {
	completed := "No"
	if task.Completed {
		completed = "Yes"
	}

	dueDate := ""
	if task.DueDate != nil {
		dueDate = task.DueDate.UTC().Format(constants.ExportDateLayout)
	}

	return []string{
		task.Title,
		task.Description,
		string(task.Category),
		string(task.Priority),
		string(task.Status),
		completed,
		dueDate,
		task.CreatedAt.UTC().Format(constants.ExportDateLayout),
		strings.Join(task.Tags, constants.ExportTagSeparator),
	}
}
