package etl

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// sourceColumns is the fixed, documented column set per entity. A source
// missing any of its columns fails extraction for the whole run.
var sourceColumns = map[Entity][]string{
	EntityStudents:    {"student_id", "student_number", "first_name", "last_name", "date_of_birth", "email", "status"},
	EntityCourses:     {"course_id", "course_code", "course_name", "credits", "status"},
	EntityEnrollments: {"enrollment_id", "student_id", "course_id", "academic_year", "term", "enrollment_date"},
	EntityGrades:      {"grades_id", "enrollment_id", "grade_type", "grade_value", "grade_date"},
	EntityAttendance:  {"attendance_id", "enrollment_id", "attendance_date", "status"},
}

// Columns returns the expected header for an entity's source file.
func Columns(entity Entity) []string {
	return sourceColumns[entity]
}

// ReadSource parses one delimiter-separated source. The header row is
// required and must contain every documented column; extra columns are
// ignored. Rows keep their 1-based line number for rejection reports.
func ReadSource(r io.Reader, entity Entity, delimiter rune) ([]RawRow, error) {
	reader := csv.NewReader(r)
	reader.Comma = delimiter
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%s: missing header row", entity)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: read header: %w", entity, err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(strings.ToLower(name))] = i
	}
	var missing []string
	for _, column := range sourceColumns[entity] {
		if _, ok := index[column]; !ok {
			missing = append(missing, column)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%s: missing columns: %s", entity, strings.Join(missing, ", "))
	}

	var rows []RawRow
	line := 1
	for {
		record, err := reader.Read()
		line++
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: read line %d: %w", entity, line, err)
		}
		fields := make(map[string]string, len(sourceColumns[entity]))
		for _, column := range sourceColumns[entity] {
			pos := index[column]
			if pos < len(record) {
				fields[column] = record[pos]
			}
		}
		rows = append(rows, RawRow{Line: line, Fields: fields})
	}
	return rows, nil
}

// Extract reads all five sources from dir, named <entity>.csv. A missing
// or malformed file is fatal for the run, matching the all-or-nothing
// extract step.
func Extract(dir string, delimiter rune) (map[Entity][]RawRow, error) {
	sources := make(map[Entity][]RawRow, len(LoadOrder))
	for _, entity := range LoadOrder {
		path := filepath.Join(dir, fmt.Sprintf("%s.csv", entity))
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s source: %w", entity, err)
		}
		rows, err := ReadSource(f, entity, delimiter)
		closeErr := f.Close()
		if err != nil {
			return nil, err
		}
		if closeErr != nil {
			return nil, fmt.Errorf("close %s source: %w", entity, closeErr)
		}
		sources[entity] = rows
	}
	return sources, nil
}
