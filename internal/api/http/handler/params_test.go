package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v3"

	"github.com/Alijeyrad/dentlab_backend/internal/service/cases"
)

type sampleBody struct {
	Name  string         `json:"name"`
	Price float64        `json:"price"`
	Notes string         `json:"notes"`
	Tree  map[string]any `json:"tree"`
}

func decodeApp(t *testing.T) *fiber.App {
	t.Helper()
	app := fiber.New()
	app.Post("/", func(c fiber.Ctx) error {
		var body sampleBody
		if err := decodeBody(c, &body, "price", "tree"); err != nil {
			return badRequest(c, err.Error())
		}
		return c.JSON(body)
	})
	return app
}

func readBody(t *testing.T, r io.Reader, dst any) {
	t.Helper()
	if err := json.NewDecoder(r).Decode(dst); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestDecodeBodyMultipart(t *testing.T) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	_ = w.WriteField("name", "Zirconia crown")
	_ = w.WriteField("price", "120.5")
	_ = w.WriteField("notes", "42")
	_ = w.WriteField("tree", `{"shade":"A2"}`)
	_ = w.Close()

	req := httptest.NewRequest(fiber.MethodPost, "/", &buf)
	req.Header.Set(fiber.HeaderContentType, w.FormDataContentType())
	resp, err := decodeApp(t).Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var got sampleBody
	readBody(t, resp.Body, &got)
	if got.Name != "Zirconia crown" || got.Price != 120.5 {
		t.Errorf("got %+v", got)
	}
	// not listed as raw, so it stays a string
	if got.Notes != "42" {
		t.Errorf("notes = %q", got.Notes)
	}
	if got.Tree["shade"] != "A2" {
		t.Errorf("tree = %v", got.Tree)
	}
}

func TestDecodeBodyJSON(t *testing.T) {
	req := httptest.NewRequest(fiber.MethodPost, "/", strings.NewReader(`{"name":"Bridge","price":80}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := decodeApp(t).Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	var got sampleBody
	readBody(t, resp.Body, &got)
	if got.Name != "Bridge" || got.Price != 80 {
		t.Errorf("got %+v", got)
	}
}

func TestDateField(t *testing.T) {
	str := func(s string) *string { return &s }

	tests := []struct {
		name    string
		in      *string
		wantNil bool
		wantErr bool
		wantDay int
	}{
		{"absent", nil, true, false, 0},
		{"blank", str("  "), true, false, 0},
		{"date only", str("2026-03-14"), false, false, 14},
		{"rfc3339", str("2026-03-15T10:00:00Z"), false, false, 15},
		{"garbage", str("14/03/2026"), true, true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := dateField(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if (got == nil) != tt.wantNil {
				t.Fatalf("got = %v, wantNil %v", got, tt.wantNil)
			}
			if got != nil && got.Day() != tt.wantDay {
				t.Errorf("day = %d, want %d", got.Day(), tt.wantDay)
			}
		})
	}
}

func TestQueryPageAndSort(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c fiber.Ctx) error {
		p, s := queryPage(c), querySort(c)
		return c.SendString(fmt.Sprintf("%d/%d/%s/%t", p.Page, p.Limit, s.Field, s.Desc))
	})

	tests := []struct{ query, want string }{
		{"?page=2&limit=5&sortBy=createdAt&sortOrder=asc", "2/5/createdAt/false"},
		{"?sortBy=caseNumber", "1/10/caseNumber/true"},
	}
	for _, tt := range tests {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/"+tt.query, nil))
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		b, _ := io.ReadAll(resp.Body)
		if string(b) != tt.want {
			t.Errorf("%s: got %q, want %q", tt.query, b, tt.want)
		}
	}
}

func TestMapCaseError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{cases.ErrCaseNotFound, fiber.StatusNotFound},
		{fmt.Errorf("load: %w", cases.ErrForbidden), fiber.StatusForbidden},
		{cases.ErrNotAssignee, fiber.StatusForbidden},
		{cases.ErrAlreadyReviewed, fiber.StatusConflict},
		{cases.ErrInvalidTransition, fiber.StatusBadRequest},
		{cases.ErrReasonRequired, fiber.StatusBadRequest},
		{errors.New("db down"), fiber.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			app := fiber.New()
			app.Get("/", func(c fiber.Ctx) error { return mapCaseError(c, tt.err) })
			resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/", nil))
			if err != nil {
				t.Fatalf("app.Test: %v", err)
			}
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
			var env envelope
			readBody(t, resp.Body, &env)
			if env.Success {
				t.Error("success = true on an error response")
			}
		})
	}
}
