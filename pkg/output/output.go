package output

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	json "github.com/json-iterator/go"
	"github.com/workforce/tracker/pkg/config"
	apperrors "github.com/workforce/tracker/pkg/errors"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"
	FormatTable OutputFormat = "table"
	FormatText  OutputFormat = "text"
)

var (
	// Out receives regular output
	Out io.Writer = color.Output
	// Err receives failures
	Err io.Writer = color.Error
)

// Field is one key/value line of a record. Records keep their field order.
type Field struct {
	Key   string
	Value interface{}
}

// GetOutputFormat returns the configured output format
func GetOutputFormat() OutputFormat {
	switch config.GetString("output.format") {
	case "json":
		return FormatJSON
	case "table":
		return FormatTable
	default:
		return FormatText
	}
}

// ValidateOutputFormat checks if format is valid
func ValidateOutputFormat(format string) bool {
	return format == "json" || format == "table" || format == "text"
}

// PrintJSON writes data as indented JSON
func PrintJSON(data interface{}) error {
	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(Out, string(out))
	return err
}

// PrintRecord outputs a single record in the configured format. JSON
// output encodes data instead of the fields when data is non-nil.
func PrintRecord(title string, fields []Field, data interface{}) error {
	switch GetOutputFormat() {
	case FormatJSON:
		if data != nil {
			return PrintJSON(data)
		}
		record := make(map[string]interface{}, len(fields))
		for _, f := range fields {
			record[f.Key] = f.Value
		}
		return PrintJSON(record)
	case FormatTable:
		rows := make([][]string, 0, len(fields))
		for _, f := range fields {
			rows = append(rows, []string{f.Key, fmt.Sprintf("%v", f.Value)})
		}
		PrintTable([]string{"Field", "Value"}, rows)
		return nil
	default:
		if title != "" {
			color.New(color.Bold, color.Underline).Fprintln(Out, title)
		}
		bold := color.New(color.Bold)
		for _, f := range fields {
			bold.Fprint(Out, f.Key+": ")
			fmt.Fprintf(Out, "%v\n", f.Value)
		}
		return nil
	}
}

// PrintList outputs rows in the configured format. JSON output encodes
// data; text and table output both print the rows under headers.
func PrintList(headers []string, rows [][]string, data interface{}) error {
	if GetOutputFormat() == FormatJSON {
		return PrintJSON(data)
	}
	if len(rows) == 0 {
		PrintInfo("Nothing to show")
		return nil
	}
	PrintTable(headers, rows)
	return nil
}

// PrintTable writes an aligned table with bold headers
func PrintTable(headers []string, rows [][]string) {
	w := tabwriter.NewWriter(Out, 0, 0, 2, ' ', 0)
	bold := color.New(color.Bold)

	for i, h := range headers {
		bold.Fprint(w, h)
		if i < len(headers)-1 {
			fmt.Fprint(w, "\t")
		}
	}
	fmt.Fprintln(w)

	for _, row := range rows {
		for i, cell := range row {
			fmt.Fprint(w, cell)
			if i < len(row)-1 {
				fmt.Fprint(w, "\t")
			}
		}
		fmt.Fprintln(w)
	}

	w.Flush()
}

// PrintSuccess prints a success message
func PrintSuccess(msg string, args ...interface{}) {
	color.New(color.FgGreen).Fprintf(Out, msg+"\n", args...)
}

// PrintInfo prints an info message
func PrintInfo(msg string, args ...interface{}) {
	color.New(color.FgCyan).Fprintf(Out, msg+"\n", args...)
}

// PrintWarning prints a warning message
func PrintWarning(msg string, args ...interface{}) {
	color.New(color.FgYellow).Fprintf(Out, "Warning: "+msg+"\n", args...)
}

// PrintFailure prints err categorized, with its suggestion
func PrintFailure(err error) {
	if err == nil {
		return
	}
	color.New(color.FgRed).Fprint(Err, apperrors.FormatError(err))
}

// Redirect points Out and Err at w until the returned restore is called
func Redirect(w io.Writer) (restore func()) {
	prevOut, prevErr := Out, Err
	Out, Err = w, w
	return func() {
		Out, Err = prevOut, prevErr
	}
}

func init() {
	if os.Getenv("NO_COLOR") != "" {
		color.NoColor = true
	}
}
