package index

import "fmt"

// OutcomeKind classifies how a single file's scan ended.
type OutcomeKind int

const (
	// OutcomeHasClasses means the file contributed at least one record.
	OutcomeHasClasses OutcomeKind = iota
	// OutcomeEmpty means the file was blank or produced no named records.
	OutcomeEmpty
	// OutcomeParseError means the file could not be read or parsed.
	OutcomeParseError
	// OutcomeTimeout means extraction exceeded the per-file deadline.
	OutcomeTimeout
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeHasClasses:
		return "has_classes"
	case OutcomeEmpty:
		return "empty"
	case OutcomeParseError:
		return "parse_error"
	case OutcomeTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Outcome is the result of scanning one file. Classes is set for
// OutcomeHasClasses, Message for OutcomeParseError.
type Outcome struct {
	Kind    OutcomeKind
	Classes int
	Message string
}

func (o Outcome) String() string {
	switch o.Kind {
	case OutcomeHasClasses:
		return fmt.Sprintf("has_classes(%d)", o.Classes)
	case OutcomeParseError:
		return fmt.Sprintf("parse_error(%s)", o.Message)
	default:
		return o.Kind.String()
	}
}

// Statistics aggregates the outcomes of one scan call.
// TotalFiles always equals FilesWithClasses + EmptyFiles + ErrorFiles + TimeoutFiles.
type Statistics struct {
	TotalFiles       int      `json:"total_files"`
	FilesWithClasses int      `json:"files_with_classes"`
	EmptyFiles       int      `json:"empty_files"`
	ErrorFiles       int      `json:"error_files"`
	TimeoutFiles     int      `json:"timeout_files"`
	TotalClasses     int      `json:"total_classes"`
	ErrorPaths       []string `json:"error_file_paths"`
	TimeoutPaths     []string `json:"timeout_file_paths"`
}

// SkippedFiles is the number of files that contributed no records.
func (s Statistics) SkippedFiles() int {
	return s.EmptyFiles + s.ErrorFiles + s.TimeoutFiles
}

// SuccessRate is the percentage of files that contributed records,
// 0 when no files were scanned.
func (s Statistics) SuccessRate() float64 {
	if s.TotalFiles == 0 {
		return 0
	}
	return float64(s.TotalFiles-s.SkippedFiles()) / float64(s.TotalFiles) * 100
}

// Consistent reports whether the outcome counts add up to TotalFiles.
func (s Statistics) Consistent() bool {
	return s.TotalFiles == s.FilesWithClasses+s.EmptyFiles+s.ErrorFiles+s.TimeoutFiles
}

func (s *Statistics) add(path string, o Outcome) {
	s.TotalFiles++
	switch o.Kind {
	case OutcomeHasClasses:
		s.FilesWithClasses++
		s.TotalClasses += o.Classes
	case OutcomeEmpty:
		s.EmptyFiles++
	case OutcomeParseError:
		s.ErrorFiles++
		s.ErrorPaths = append(s.ErrorPaths, path)
	case OutcomeTimeout:
		s.TimeoutFiles++
		s.TimeoutPaths = append(s.TimeoutPaths, path)
	}
}
