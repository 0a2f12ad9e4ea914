package contentapi

import (
	"context"
	"errors"
	"testing"
	"time"
)

// countingAPI: мок API, считающий вызовы.
type countingAPI struct {
	verifyCalls int
	verifyErr   error
	uploadResp  *UploadResponse
}

func (m *countingAPI) VerifyName(_ context.Context, owner, name string) (*VerifyNameResponse, error) {
	m.verifyCalls++
	if m.verifyErr != nil {
		return nil, m.verifyErr
	}
	return &VerifyNameResponse{Valid: name != "taken", Message: "checked " + owner + "/" + name}, nil
}

func (m *countingAPI) Upload(_ context.Context, _ *UploadRequest) (*UploadResponse, error) {
	return m.uploadResp, nil
}

func TestCachingClient_Hit(t *testing.T) {
	next := &countingAPI{}
	c := NewCachingClient(next, 10, time.Minute)

	for i := 0; i < 3; i++ {
		resp, err := c.VerifyName(context.Background(), "alice", "coaster1")
		if err != nil {
			t.Fatalf("VerifyName: %v", err)
		}
		if !resp.Valid {
			t.Error("ожидался Valid=true")
		}
	}
	if next.verifyCalls != 1 {
		t.Errorf("вызовов API = %d, ожидается 1", next.verifyCalls)
	}
}

func TestCachingClient_KeyIncludesOwner(t *testing.T) {
	next := &countingAPI{}
	c := NewCachingClient(next, 10, time.Minute)

	_, _ = c.VerifyName(context.Background(), "alice", "coaster1")
	_, _ = c.VerifyName(context.Background(), "bob", "coaster1")
	if next.verifyCalls != 2 {
		t.Errorf("вызовов API = %d, ожидается 2", next.verifyCalls)
	}
}

func TestCachingClient_ErrorsNotCached(t *testing.T) {
	next := &countingAPI{verifyErr: errors.New("timeout")}
	c := NewCachingClient(next, 10, time.Minute)

	for i := 0; i < 2; i++ {
		if _, err := c.VerifyName(context.Background(), "alice", "x"); err == nil {
			t.Fatal("ожидалась ошибка")
		}
	}
	if next.verifyCalls != 2 {
		t.Errorf("вызовов API = %d, ожидается 2", next.verifyCalls)
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d, ожидается 0", c.Len())
	}
}

func TestCachingClient_UploadInvalidates(t *testing.T) {
	next := &countingAPI{uploadResp: &UploadResponse{Owner: "alice", Name: "coaster1"}}
	c := NewCachingClient(next, 10, time.Minute)

	_, _ = c.VerifyName(context.Background(), "alice", "coaster1")
	if c.Len() != 1 {
		t.Fatalf("Len() = %d, ожидается 1", c.Len())
	}

	if _, err := c.Upload(context.Background(), &UploadRequest{Owner: "alice", Name: "coaster1"}); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d после Upload, ожидается 0", c.Len())
	}

	_, _ = c.VerifyName(context.Background(), "alice", "coaster1")
	if next.verifyCalls != 2 {
		t.Errorf("вызовов API = %d, ожидается 2", next.verifyCalls)
	}
}

func TestCachingClient_Expiry(t *testing.T) {
	next := &countingAPI{}
	c := NewCachingClient(next, 10, 20*time.Millisecond)

	_, _ = c.VerifyName(context.Background(), "alice", "coaster1")
	time.Sleep(50 * time.Millisecond)
	_, _ = c.VerifyName(context.Background(), "alice", "coaster1")
	if next.verifyCalls != 2 {
		t.Errorf("вызовов API = %d, ожидается 2 после истечения TTL", next.verifyCalls)
	}
}
