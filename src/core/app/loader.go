package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

type DataType string

const (
	DataTypeText     DataType = "text"
	DataTypeTextFile DataType = "text_file"
	DataTypePDFFile  DataType = "pdf_file"
)

var (
	ErrUnsupportedDataType = errors.New("unsupported data type")
	ErrNoConverter         = errors.New("no document converter configured")
	ErrNoContent           = errors.New("source has no text content")
)

// Converter turns binary documents into plain text.
type Converter interface {
	ConvertToText(ctx context.Context, filename string, content []byte) (string, error)
}

// ParseDataType accepts the known data types. An empty value is guessed
// from the source name.
func ParseDataType(s, source string) (DataType, error) {
	switch DataType(s) {
	case DataTypeText, DataTypeTextFile, DataTypePDFFile:
		return DataType(s), nil
	case "":
		if strings.EqualFold(filepath.Ext(source), ".pdf") {
			return DataTypePDFFile, nil
		}
		return DataTypeTextFile, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedDataType, s)
	}
}

// load reads the text of a source. For text the source is the content.
func (a *App) load(ctx context.Context, source string, dataType DataType) (string, error) {
	switch dataType {
	case DataTypeText:
		return source, nil
	case DataTypeTextFile, DataTypePDFFile:
		data, err := a.fs.ReadFile(source)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", source, err)
		}
		return a.decode(ctx, filepath.Base(source), dataType, data)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedDataType, dataType)
	}
}

func (a *App) decode(ctx context.Context, name string, dataType DataType, data []byte) (string, error) {
	switch dataType {
	case DataTypeText, DataTypeTextFile:
		if !utf8.Valid(data) {
			return "", fmt.Errorf("%s is not valid UTF-8 text", name)
		}
		return string(data), nil
	case DataTypePDFFile:
		if a.converter == nil {
			return "", ErrNoConverter
		}
		text, err := a.converter.ConvertToText(ctx, name, data)
		if err != nil {
			return "", fmt.Errorf("failed to convert %s: %w", name, err)
		}
		return text, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedDataType, dataType)
	}
}
