package security

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// sniffLen is how much of an upload is read for content detection.
const sniffLen = 3072

// FileValidationResult contains the result of file validation
type FileValidationResult struct {
	Valid        bool   // Whether the file passed all validation checks
	Extension    string // Detected file extension
	DetectedMIME string // Detected MIME type
	Error        string // Error message if validation failed
}

// Magic byte signatures for allowed document types
var magicBytes = map[string][][]byte{
	".pdf":  {{0x25, 0x50, 0x44, 0x46}},                         // %PDF
	".doc":  {{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}}, // OLE Compound Document
	".docx": {{0x50, 0x4B, 0x03, 0x04}},                         // ZIP (PK..)
	".odt":  {{0x50, 0x4B, 0x03, 0x04}},
	".rtf":  {{0x7B, 0x5C, 0x72, 0x74, 0x66}}, // {\rtf
	".txt":  {},
}

// Allowed MIME types per extension. application/octet-stream is never accepted.
var allowedMIME = map[string][]string{
	".pdf":  {"application/pdf"},
	".doc":  {"application/msword", "application/x-ole-storage"},
	".docx": {"application/vnd.openxmlformats-officedocument.wordprocessingml.document", "application/zip"},
	".odt":  {"application/vnd.oasis.opendocument.text", "application/zip"},
	".rtf":  {"text/rtf", "application/rtf"},
	".txt":  {"text/plain"},
}

// ValidateDocument checks a resume or cover letter upload:
// 1. Extension whitelist
// 2. Magic bytes match the extension
// 3. Sniffed MIME type is allowed for the extension
func ValidateDocument(filename string, r io.Reader) FileValidationResult {
	var result FileValidationResult

	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		result.Error = "file has no extension"
		return result
	}
	result.Extension = ext

	allowed, ok := allowedMIME[ext]
	if !ok {
		result.Error = "file extension not allowed: " + ext
		return result
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		result.Error = "file could not be read"
		return result
	}
	head = head[:n]

	if !validateMagicBytes(ext, head) {
		result.Error = "file content does not match extension"
		return result
	}

	detected := mimetype.Detect(head)
	result.DetectedMIME = detected.String()
	for _, m := range allowed {
		if detected.Is(m) {
			result.Valid = true
			return result
		}
	}
	result.Error = "MIME type not allowed: " + detected.String()
	return result
}

// validateMagicBytes checks if file content starts with expected magic bytes
func validateMagicBytes(ext string, data []byte) bool {
	signatures, ok := magicBytes[ext]
	if !ok {
		return false
	}
	// Empty signatures array = no magic bytes to check (e.g., txt)
	if len(signatures) == 0 {
		return true
	}
	for _, sig := range signatures {
		if bytes.HasPrefix(data, sig) {
			return true
		}
	}
	return false
}

// GetAllowedExtensions returns the accepted document extensions
func GetAllowedExtensions() []string {
	extensions := make([]string, 0, len(allowedMIME))
	for ext := range allowedMIME {
		extensions = append(extensions, ext)
	}
	return extensions
}
