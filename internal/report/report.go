package report

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/thyrook/boardsight/internal/board"
)

const (
	// NumBuckets covers per-file error ratios 0.0, 0.1, ..., 1.0
	NumBuckets = 11

	// TimestampLayout is the report timestamp format, microsecond precision
	TimestampLayout = "2006-01-02T15:04:05.000000"
)

// Bucket is a per-file error ratio rounded to one decimal, stored as tenths
type Bucket int

// BucketFor returns the bucket of a file with the given number of wrong squares.
// Halves round to even, so 16 errors (0.25) land in 0.2 and 48 (0.75) in 0.8.
func BucketFor(errorCount int) Bucket {
	b := Bucket(math.RoundToEven(float64(errorCount*10) / board.NumSquares))
	if b < 0 {
		return 0
	}
	if b >= NumBuckets {
		return NumBuckets - 1
	}
	return b
}

// Key formats the bucket the way it appears in saved reports ("0.0".."1.0")
func (b Bucket) Key() string {
	return strconv.FormatFloat(float64(b)/10, 'f', 1, 64)
}

// ParseBucket is the inverse of Key
func ParseBucket(key string) (Bucket, error) {
	v, err := strconv.ParseFloat(key, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid bucket key %q: %w", key, err)
	}
	b := Bucket(math.Round(v * 10))
	if b < 0 || b >= NumBuckets {
		return 0, fmt.Errorf("bucket key %q out of range", key)
	}
	return b, nil
}

// FolderReport aggregates the predictions of one directory run
type FolderReport struct {
	RunID     string
	Timestamp time.Time
	Model     string
	Folder    string

	// By file
	TotalFiles           int
	TotalFilesWithErrors int
	FileErrorRatio       float64
	FileRatioByBucket    [NumBuckets]float64
	FilesByBucket        [NumBuckets][]string

	// By square
	TotalFields           int
	TotalFieldsWithErrors int
	FieldErrorRatio       float64

	// By piece
	PiecesInTruth    map[board.Piece]int
	ErrorsByCode     map[string]int // truth char + predicted char
	ErrorRateByPiece map[board.Piece]float64

	SkippedFiles []string
	FailedFiles  map[string]string

	bucketCounts [NumBuckets]int
}

func newFolderReport(runID string, ts time.Time, model, folder string) *FolderReport {
	r := &FolderReport{
		RunID:            runID,
		Timestamp:        ts,
		Model:            model,
		Folder:           folder,
		PiecesInTruth:    make(map[board.Piece]int),
		ErrorsByCode:     make(map[string]int),
		ErrorRateByPiece: make(map[board.Piece]float64),
		SkippedFiles:     []string{},
		FailedFiles:      make(map[string]string),
	}
	for i := range r.FilesByBucket {
		r.FilesByBucket[i] = []string{}
	}
	return r
}

// addFile folds one successful prediction into the counters
func (r *FolderReport) addFile(name string, truth board.Sequence, errorCount int, errorPieces []string) {
	r.TotalFiles++
	r.TotalFields += board.NumSquares

	for p, n := range truth.Counts() {
		r.PiecesInTruth[p] += n
	}

	if errorCount > 0 {
		r.TotalFilesWithErrors++
		r.TotalFieldsWithErrors += errorCount
		for _, code := range errorPieces {
			r.ErrorsByCode[code]++
		}
	}

	b := BucketFor(errorCount)
	r.bucketCounts[b]++
	r.FilesByBucket[b] = append(r.FilesByBucket[b], name)
}

// finalize derives the ratios. TotalFiles must be positive.
func (r *FolderReport) finalize() {
	total := float64(r.TotalFiles)
	for b, count := range r.bucketCounts {
		r.FileRatioByBucket[b] = math.RoundToEven(float64(count)/total*100) / 100
	}
	r.FileErrorRatio = float64(r.TotalFilesWithErrors) / total
	r.FieldErrorRatio = float64(r.TotalFieldsWithErrors) / float64(r.TotalFields)

	errorsByTruth := make(map[board.Piece]int)
	for code, n := range r.ErrorsByCode {
		p, err := board.ParsePiece(code[0])
		if err != nil {
			continue
		}
		errorsByTruth[p] += n
	}
	for p, count := range r.PiecesInTruth {
		if count == 0 {
			continue
		}
		r.ErrorRateByPiece[p] = float64(errorsByTruth[p]) / float64(count)
	}
}

// fileNameLayout is TimestampLayout with ':' replaced, valid on every filesystem
const fileNameLayout = "2006-01-02T15-04-05.000000"

// FileName returns the name a report taken at ts is saved under
func FileName(ts time.Time) string {
	return ts.Format(fileNameLayout) + ".json"
}

// IsReportName reports whether name looks like a file written by Save
func IsReportName(name string) bool {
	stem, ok := strings.CutSuffix(name, ".json")
	if !ok {
		return false
	}
	_, err := time.Parse(fileNameLayout, stem)
	return err == nil
}

// Save writes the report as indented JSON into dir and returns the file path
func (r *FolderReport) Save(dir string) (string, error) {
	data, err := json.MarshalIndent(r, "", "    ")
	if err != nil {
		return "", fmt.Errorf("failed to encode report: %w", err)
	}

	path := filepath.Join(dir, FileName(r.Timestamp))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}

// LoadFile reads a report previously written by Save
func LoadFile(path string) (*FolderReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}
	var r FolderReport
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	return &r, nil
}

// Summary returns a short human readable description of the report
func (r *FolderReport) Summary() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Folder:  %s\n", r.Folder)
	fmt.Fprintf(&sb, "Model:   %s\n", r.Model)
	fmt.Fprintf(&sb, "Files:   %d (%d with errors, ratio %.4f)\n",
		r.TotalFiles, r.TotalFilesWithErrors, r.FileErrorRatio)
	fmt.Fprintf(&sb, "Squares: %d (%d with errors, ratio %.4f)\n",
		r.TotalFields, r.TotalFieldsWithErrors, r.FieldErrorRatio)

	pieces := make([]board.Piece, 0, len(r.ErrorRateByPiece))
	for p := range r.ErrorRateByPiece {
		pieces = append(pieces, p)
	}
	sort.Slice(pieces, func(i, j int) bool { return pieces[i] < pieces[j] })
	for _, p := range pieces {
		fmt.Fprintf(&sb, "  %c error rate %.4f over %d\n", p.Char(), r.ErrorRateByPiece[p], r.PiecesInTruth[p])
	}

	if len(r.SkippedFiles) > 0 {
		fmt.Fprintf(&sb, "Skipped: %d\n", len(r.SkippedFiles))
	}
	if len(r.FailedFiles) > 0 {
		fmt.Fprintf(&sb, "Failed:  %d\n", len(r.FailedFiles))
	}
	return sb.String()
}

type folderReportJSON struct {
	RunID                 string              `json:"run_id"`
	Timestamp             string              `json:"timestamp"`
	Model                 string              `json:"model"`
	Folder                string              `json:"folder"`
	TotalFiles            int                 `json:"total_files"`
	TotalFilesWithErrors  int                 `json:"total_files_w_errors"`
	FileErrorRatio        float64             `json:"error_ratio_by_files"`
	FileRatioByBucket     map[string]float64  `json:"file_ratio_of_total_by_error_ratio"`
	TotalFields           int                 `json:"total_fields"`
	TotalFieldsWithErrors int                 `json:"total_fields_w_errors"`
	FieldErrorRatio       float64             `json:"error_ratio_by_fields"`
	PiecesInTruth         map[string]int      `json:"list_of_pieces_in_truth"`
	ErrorsByCode          map[string]int      `json:"list_of_errors_by_piece"`
	ErrorRateByPiece      map[string]float64  `json:"error_ratio_by_pieces"`
	FilesByBucket         map[string][]string `json:"file_list_by_error_ratio"`
	SkippedFiles          []string            `json:"skipped_files"`
	FailedFiles           map[string]string   `json:"failed_files"`
}

// MarshalJSON flattens buckets and pieces to their text keys
func (r *FolderReport) MarshalJSON() ([]byte, error) {
	out := folderReportJSON{
		RunID:                 r.RunID,
		Timestamp:             r.Timestamp.Format(TimestampLayout),
		Model:                 r.Model,
		Folder:                r.Folder,
		TotalFiles:            r.TotalFiles,
		TotalFilesWithErrors:  r.TotalFilesWithErrors,
		FileErrorRatio:        r.FileErrorRatio,
		FileRatioByBucket:     make(map[string]float64, NumBuckets),
		TotalFields:           r.TotalFields,
		TotalFieldsWithErrors: r.TotalFieldsWithErrors,
		FieldErrorRatio:       r.FieldErrorRatio,
		PiecesInTruth:         make(map[string]int, len(r.PiecesInTruth)),
		ErrorsByCode:          make(map[string]int, len(r.ErrorsByCode)),
		ErrorRateByPiece:      make(map[string]float64, len(r.ErrorRateByPiece)),
		FilesByBucket:         make(map[string][]string, NumBuckets),
		SkippedFiles:          r.SkippedFiles,
		FailedFiles:           r.FailedFiles,
	}

	for b := Bucket(0); b < NumBuckets; b++ {
		out.FileRatioByBucket[b.Key()] = r.FileRatioByBucket[b]
		files := r.FilesByBucket[b]
		if files == nil {
			files = []string{}
		}
		out.FilesByBucket[b.Key()] = files
	}
	for p, n := range r.PiecesInTruth {
		out.PiecesInTruth[string(p.Char())] = n
	}
	for code, n := range r.ErrorsByCode {
		out.ErrorsByCode[code] = n
	}
	for p, rate := range r.ErrorRateByPiece {
		out.ErrorRateByPiece[string(p.Char())] = rate
	}
	if out.SkippedFiles == nil {
		out.SkippedFiles = []string{}
	}
	if out.FailedFiles == nil {
		out.FailedFiles = map[string]string{}
	}

	return json.Marshal(out)
}

// UnmarshalJSON restores a report written by MarshalJSON
func (r *FolderReport) UnmarshalJSON(data []byte) error {
	var in folderReportJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	ts, err := time.ParseInLocation(TimestampLayout, in.Timestamp, time.Local)
	if err != nil {
		return fmt.Errorf("invalid timestamp: %w", err)
	}

	out := newFolderReport(in.RunID, ts, in.Model, in.Folder)
	out.TotalFiles = in.TotalFiles
	out.TotalFilesWithErrors = in.TotalFilesWithErrors
	out.FileErrorRatio = in.FileErrorRatio
	out.TotalFields = in.TotalFields
	out.TotalFieldsWithErrors = in.TotalFieldsWithErrors
	out.FieldErrorRatio = in.FieldErrorRatio

	for key, ratio := range in.FileRatioByBucket {
		b, err := ParseBucket(key)
		if err != nil {
			return err
		}
		out.FileRatioByBucket[b] = ratio
	}
	for key, files := range in.FilesByBucket {
		b, err := ParseBucket(key)
		if err != nil {
			return err
		}
		out.FilesByBucket[b] = append(out.FilesByBucket[b], files...)
		out.bucketCounts[b] = len(out.FilesByBucket[b])
	}
	for key, n := range in.PiecesInTruth {
		p, err := parsePieceKey(key)
		if err != nil {
			return err
		}
		out.PiecesInTruth[p] = n
	}
	for code, n := range in.ErrorsByCode {
		out.ErrorsByCode[code] = n
	}
	for key, rate := range in.ErrorRateByPiece {
		p, err := parsePieceKey(key)
		if err != nil {
			return err
		}
		out.ErrorRateByPiece[p] = rate
	}
	if in.SkippedFiles != nil {
		out.SkippedFiles = in.SkippedFiles
	}
	for name, reason := range in.FailedFiles {
		out.FailedFiles[name] = reason
	}

	*r = *out
	return nil
}

func parsePieceKey(key string) (board.Piece, error) {
	if len(key) != 1 {
		return board.Empty, fmt.Errorf("%w: %q", board.ErrInvalidPiece, key)
	}
	return board.ParsePiece(key[0])
}
