package handlers

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/bigkaa/goartstore/content-module/internal/contentapi"
	"github.com/bigkaa/goartstore/content-module/internal/ui/auth"
	"github.com/bigkaa/goartstore/content-module/internal/ui/i18n"
	uimiddleware "github.com/bigkaa/goartstore/content-module/internal/ui/middleware"
)

// testLogger создаёт logger для тестов.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// testBundle загружает встроенные каталоги переводов.
func testBundle(t *testing.T) *i18n.Bundle {
	t.Helper()
	b, err := i18n.Load(i18n.LocaleFS, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	return b
}

// withContext добавляет в запрос переводы и (опционально) сессию.
func withContext(t *testing.T, r *http.Request, session *auth.SessionData) *http.Request {
	t.Helper()
	ctx := i18n.WithLang(i18n.WithBundle(r.Context(), testBundle(t)), "en")
	if session != nil {
		ctx = uimiddleware.WithSession(ctx, session)
	}
	return r.WithContext(ctx)
}

func powerSession() *auth.SessionData {
	return &auth.SessionData{Username: "alice", Role: "power", AccessToken: "token"}
}

func userSession() *auth.SessionData {
	return &auth.SessionData{Username: "bob", Role: "user", AccessToken: "token"}
}

// fakeContentClient: мок form.ContentClient.
type fakeContentClient struct {
	verifyResp *contentapi.VerifyNameResponse
	verifyErr  error
	uploadResp *contentapi.UploadResponse
	uploadErr  error

	verifyOwner, verifyName string
	verifyCalls             int
	uploadCalls             int
	lastUpload              *contentapi.UploadRequest
	fileBody, imageBody     []byte
}

func (f *fakeContentClient) VerifyName(_ context.Context, owner, name string) (*contentapi.VerifyNameResponse, error) {
	f.verifyCalls++
	f.verifyOwner, f.verifyName = owner, name
	return f.verifyResp, f.verifyErr
}

func (f *fakeContentClient) Upload(_ context.Context, req *contentapi.UploadRequest) (*contentapi.UploadResponse, error) {
	f.uploadCalls++
	f.lastUpload = req
	f.fileBody, _ = io.ReadAll(req.File)
	f.imageBody, _ = io.ReadAll(req.Image)
	return f.uploadResp, f.uploadErr
}

// multipartBody собирает тело формы загрузки.
// files: имя поля → {имя файла, содержимое}.
func multipartBody(t *testing.T, fields map[string]string, files map[string][2]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	for field, f := range files {
		part, err := mw.CreateFormFile(field, f[0])
		if err != nil {
			t.Fatal(err)
		}
		io.WriteString(part, f[1])
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

// serve выполняет handler и возвращает recorder.
func serve(h http.HandlerFunc, r *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec
}
