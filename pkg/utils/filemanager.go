// =============================================================================
// Freight Survey Ingest - File Management Utilities
// =============================================================================
//
// This module provides utilities for file management operations:
//   - Input discovery and reading
//   - Input archival (moving processed files)
//   - Error log and summary log generation
//   - Directory management
//   - File naming utilities
//
// ARCHIVAL STRATEGY:
//   - Input files are moved to input_archive after a successful run
//   - Files of a failed run remain in their original location
//   - Error logs and summaries are created in the output directory
//
// =============================================================================

package utils

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
)

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager handles file operations for the ingest command.
type FileManager struct {
	// InputDir is the directory where survey exports and reference files
	// are placed.
	InputDir string

	// OutputDir receives the report and the logs.
	OutputDir string

	// InputArchiveDir is the directory for archived input files.
	InputArchiveDir string

	// UseTimestampSubdirs creates date-based subdirectories in the archive.
	// Example: input_archive/2024/01/15/zendingen_2023.csv
	UseTimestampSubdirs bool

	// ArchiveOnSuccess determines whether inputs are archived after a
	// successful run.
	ArchiveOnSuccess bool
}

// NewFileManager creates a new FileManager with the specified directories.
func NewFileManager(inputDir, outputDir, inputArchiveDir string, archiveOnSuccess bool) *FileManager {
	return &FileManager{
		InputDir:         inputDir,
		OutputDir:        outputDir,
		InputArchiveDir:  inputArchiveDir,
		ArchiveOnSuccess: archiveOnSuccess,
	}
}

// =============================================================================
// DIRECTORY MANAGEMENT
// =============================================================================

// EnsureDirectories creates all required directories if they don't exist.
func (fm *FileManager) EnsureDirectories() error {
	dirs := []string{fm.InputDir, fm.OutputDir}
	if fm.ArchiveOnSuccess && fm.InputArchiveDir != "" {
		dirs = append(dirs, fm.InputArchiveDir)
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// =============================================================================
// FILE DISCOVERY
// =============================================================================

// InputFile is one discovered input read into memory.
type InputFile struct {
	Path    string
	Name    string
	Content []byte
}

// DiscoverInputFiles lists the regular files of the input directory in name
// order. Hidden files are skipped; every other file is returned, since
// deciding what a file is belongs to the classifier.
//
// PARAMETERS:
//   - pattern: An optional glob pattern (e.g., "*.csv"). Empty matches all.
func (fm *FileManager) DiscoverInputFiles(pattern string) ([]string, error) {
	if pattern == "" {
		pattern = "*"
	}

	files, err := filepath.Glob(filepath.Join(fm.InputDir, pattern))
	if err != nil {
		return nil, fmt.Errorf("failed to scan input directory: %w", err)
	}

	var result []string
	for _, file := range files {
		if strings.HasPrefix(filepath.Base(file), ".") {
			continue
		}
		info, err := os.Stat(file)
		if err != nil || info.IsDir() {
			continue
		}
		result = append(result, file)
	}

	return result, nil
}

// ReadInputs reads every path into memory, keeping the order.
func ReadInputs(paths []string) ([]InputFile, error) {
	out := make([]InputFile, 0, len(paths))
	for _, p := range paths {
		content, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", p, err)
		}
		out = append(out, InputFile{Path: p, Name: filepath.Base(p), Content: content})
	}
	return out, nil
}

// =============================================================================
// FILE ARCHIVAL
// =============================================================================

// ArchiveInputFile moves an input file to the archive directory.
//
// RETURNS:
//   - The path to the archived file (the original path when archiving is
//     off).
//   - An error if archival fails.
func (fm *FileManager) ArchiveInputFile(filePath string) (string, error) {
	if !fm.ArchiveOnSuccess {
		return filePath, nil
	}

	archivePath := fm.getArchivePath(fm.InputArchiveDir, filePath)

	if err := os.MkdirAll(filepath.Dir(archivePath), 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	if err := os.Rename(filePath, archivePath); err != nil {
		// Rename fails across devices; fall back to copy and delete.
		if err := copyFile(filePath, archivePath); err != nil {
			return "", fmt.Errorf("failed to copy file to archive: %w", err)
		}
		if err := os.Remove(filePath); err != nil {
			return "", fmt.Errorf("failed to remove original file: %w", err)
		}
	}

	return archivePath, nil
}

// getArchivePath places the file in archiveDir, below a yyyy/mm/dd
// directory when UseTimestampSubdirs is set.
func (fm *FileManager) getArchivePath(archiveDir, filePath string) string {
	if fm.UseTimestampSubdirs {
		archiveDir = filepath.Join(archiveDir, filepath.FromSlash(time.Now().Format("2006/01/02")))
	}
	return filepath.Join(archiveDir, filepath.Base(filePath))
}

// =============================================================================
// OUTPUT FILE NAMING
// =============================================================================

// GenerateOutputFileName expands a file name format.
//
// PARAMETERS:
//   - format: The format string. Placeholders:
//     {uuid}      a random UUID
//     {timestamp} current timestamp (YYYYMMDD_HHMMSS)
//     {date}      current date (YYYYMMDD)
//     {time}      current time (HHMMSS)
//     plus one placeholder per params key, e.g. {municipality}
//   - ext: The extension the result must end with, e.g. ".xlsx".
//
// EXAMPLE:
//
//	format: "rapport_{municipality}_{date}"
//	params: {"municipality": "0344"}
//	output: "rapport_0344_20240115.xlsx"
func GenerateOutputFileName(format, ext string, params map[string]string) string {
	now := time.Now()

	replacements := map[string]string{
		"{uuid}":      uuid.New().String(),
		"{timestamp}": now.Format("20060102_150405"),
		"{date}":      now.Format("20060102"),
		"{time}":      now.Format("150405"),
	}
	for key, value := range params {
		replacements["{"+key+"}"] = value
	}

	result := format
	for placeholder, value := range replacements {
		result = strings.ReplaceAll(result, placeholder, value)
	}

	if ext != "" && !strings.HasSuffix(strings.ToLower(result), strings.ToLower(ext)) {
		result += ext
	}

	return result
}

// =============================================================================
// ERROR LOG GENERATION
// =============================================================================

// ErrorLogEntry represents a single error log entry.
type ErrorLogEntry struct {
	Timestamp time.Time
	FileName  string
	Severity  string
	Message   string
	RowNumber int
	FieldName string
}

// WriteErrorLog writes error entries to a log file.
//
// RETURNS:
//   - The path to the error log file, empty when there is nothing to log.
//   - An error if writing fails.
func WriteErrorLog(entries []ErrorLogEntry, outputDir string) (string, error) {
	if len(entries) == 0 {
		return "", nil
	}

	logPath := filepath.Join(outputDir, fmt.Sprintf("error_log_%s.txt", time.Now().Format("20060102_150405")))

	file, err := os.Create(logPath)
	if err != nil {
		return "", fmt.Errorf("failed to create error log: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)

	fmt.Fprintf(writer, "Freight Survey Ingest - Error Log\n"+
		"Generated: %s\n"+
		"Total Entries: %d\n"+
		"================================================================================\n\n",
		time.Now().Format(time.DateTime),
		len(entries))

	for i, entry := range entries {
		fmt.Fprintf(writer, "Entry #%d\n"+
			"  Timestamp:  %s\n"+
			"  File:       %s\n"+
			"  Severity:   %s\n"+
			"  Message:    %s\n",
			i+1,
			entry.Timestamp.Format(time.DateTime),
			entry.FileName,
			entry.Severity,
			entry.Message)

		if entry.RowNumber > 0 {
			fmt.Fprintf(writer, "  Row Number: %d\n", entry.RowNumber)
		}
		if entry.FieldName != "" {
			fmt.Fprintf(writer, "  Field:      %s\n", entry.FieldName)
		}
		writer.WriteString("\n")
	}

	writer.WriteString("================================================================================\n" +
		"End of Error Log\n")

	if err := writer.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush error log: %w", err)
	}

	return logPath, nil
}

// =============================================================================
// PROCESSING SUMMARY
// =============================================================================

// WriteSummaryLog writes a run summary as indented JSON.
//
// RETURNS:
//   - The path to the summary file.
//   - An error if encoding or writing fails.
func WriteSummaryLog(summary interface{}, outputDir string) (string, error) {
	data, err := sonic.ConfigStd.MarshalIndent(summary, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode summary: %w", err)
	}

	summaryPath := filepath.Join(outputDir, fmt.Sprintf("processing_summary_%s.json", time.Now().Format("20060102_150405")))
	if err := os.WriteFile(summaryPath, append(data, '\n'), 0644); err != nil {
		return "", fmt.Errorf("failed to write summary file: %w", err)
	}

	return summaryPath, nil
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// copyFile copies a file from src to dst.
func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return err
	}

	return destFile.Sync()
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
