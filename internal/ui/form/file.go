package form

import (
	"fmt"
	"io"
	"mime/multipart"

	"github.com/bigkaa/goartstore/content-module/internal/contentapi"
)

// FileTooLargeError: выбранный файл больше допустимого.
// Текст показывается пользователю как есть.
type FileTooLargeError struct {
	Name string
	Size int64
	Max  int64
}

func (e *FileTooLargeError) Error() string {
	return fmt.Sprintf("Supplied file %q with size %d bytes exceeds the maximum of %d bytes.", e.Name, e.Size, e.Max)
}

func (e *FileTooLargeError) Unwrap() error {
	return contentapi.ErrTooLarge
}

// MultipartFile: SelectedFile поверх части multipart-запроса.
type MultipartFile struct {
	header *multipart.FileHeader
}

// NewMultipartFile оборачивает заголовок файла. Для nil возвращает nil,
// чтобы отсутствие файла оставалось nil-интерфейсом.
func NewMultipartFile(header *multipart.FileHeader) SelectedFile {
	if header == nil || header.Filename == "" {
		return nil
	}
	return &MultipartFile{header: header}
}

// Name возвращает имя файла, переданное браузером.
func (f *MultipartFile) Name() string {
	return f.header.Filename
}

// Size возвращает заявленный размер файла.
func (f *MultipartFile) Size() int64 {
	return f.header.Size
}

// OpenReadStream открывает файл с ограничением max байт.
func (f *MultipartFile) OpenReadStream(max int64) (io.ReadCloser, error) {
	if f.header.Size > max {
		return nil, &FileTooLargeError{Name: f.header.Filename, Size: f.header.Size, Max: max}
	}

	file, err := f.header.Open()
	if err != nil {
		return nil, fmt.Errorf("открытие файла %s: %w", f.header.Filename, err)
	}
	return contentapi.NewBoundedReader(file, max), nil
}
