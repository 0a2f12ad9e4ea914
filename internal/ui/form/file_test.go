package form

import (
	"bytes"
	"errors"
	"io"
	"mime/multipart"
	"testing"

	"github.com/bigkaa/goartstore/content-module/internal/contentapi"
)

// parseFileHeader собирает multipart-форму и возвращает заголовок части file.
func parseFileHeader(t *testing.T, filename, content string) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	io.WriteString(part, content)
	mw.Close()

	form, err := multipart.NewReader(&buf, mw.Boundary()).ReadForm(1 << 20)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { form.RemoveAll() })
	return form.File["file"][0]
}

func TestNewMultipartFile_Nil(t *testing.T) {
	if f := NewMultipartFile(nil); f != nil {
		t.Errorf("NewMultipartFile(nil) = %v, ожидается nil", f)
	}
}

func TestMultipartFile_OpenReadStream(t *testing.T) {
	f := NewMultipartFile(parseFileHeader(t, "park.sv6", "PARKDATA"))

	if f.Name() != "park.sv6" {
		t.Errorf("Name() = %q", f.Name())
	}
	if f.Size() != 8 {
		t.Errorf("Size() = %d, ожидается 8", f.Size())
	}

	rc, err := f.OpenReadStream(8)
	if err != nil {
		t.Fatalf("OpenReadStream: %v", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(data) != "PARKDATA" {
		t.Errorf("содержимое = %q", data)
	}
}

func TestMultipartFile_TooLarge(t *testing.T) {
	f := NewMultipartFile(parseFileHeader(t, "park.sv6", "PARKDATA"))

	_, err := f.OpenReadStream(4)
	if !errors.Is(err, contentapi.ErrTooLarge) {
		t.Fatalf("ожидалась ErrTooLarge, получено %v", err)
	}
	var tooLarge *FileTooLargeError
	if !errors.As(err, &tooLarge) || tooLarge.Size != 8 || tooLarge.Max != 4 {
		t.Errorf("FileTooLargeError = %+v", tooLarge)
	}
}
