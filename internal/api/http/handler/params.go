package handler

import (
	"encoding/json"
	"errors"
	"mime/multipart"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/Alijeyrad/dentlab_backend/internal/repo"
)

var errInvalidID = errors.New("Invalid ID")

func paramUUID(c fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, errInvalidID
	}
	return id, nil
}

// queryUUID returns nil when the parameter is absent.
func queryUUID(c fiber.Ctx, name string) (*uuid.UUID, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, errInvalidID
	}
	return &id, nil
}

func queryInt(c fiber.Ctx, name string, def int) int {
	n, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return def
	}
	return n
}

// queryBool returns nil unless the parameter is "true" or "false".
func queryBool(c fiber.Ctx, name string) *bool {
	b, err := strconv.ParseBool(c.Query(name))
	if err != nil {
		return nil
	}
	return &b
}

func queryPage(c fiber.Ctx) repo.Page {
	return repo.Page{Page: queryInt(c, "page", 1), Limit: queryInt(c, "limit", repo.DefaultLimit)}.Normalize()
}

func pagination(page, perPage, total, totalPages int) Pagination {
	return Pagination{CurrentPage: page, TotalPages: totalPages, TotalItems: total, ItemsPerPage: perPage}
}

// uuidField parses an optional id from a request body.
func uuidField(s *string) (*uuid.UUID, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	id, err := uuid.Parse(strings.TrimSpace(*s))
	if err != nil {
		return nil, errInvalidID
	}
	return &id, nil
}

// files returns the uploaded parts of a multipart request under any of
// names. Non-multipart requests have none.
func files(c fiber.Ctx, names ...string) []*multipart.FileHeader {
	form, err := c.MultipartForm()
	if err != nil || form == nil {
		return nil
	}
	var out []*multipart.FileHeader
	for _, n := range names {
		out = append(out, form.File[n]...)
	}
	return out
}

func isMultipart(c fiber.Ctx) bool {
	return strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm)
}

// decodeBody binds a JSON body, or the text fields of a multipart form.
// Form values under raw are embedded as JSON when they parse as JSON, so
// nested trees and numbers survive a multipart submission.
func decodeBody(c fiber.Ctx, dst any, raw ...string) error {
	if !isMultipart(c) {
		return c.Bind().JSON(dst)
	}
	form, err := c.MultipartForm()
	if err != nil {
		return err
	}
	obj := make(map[string]json.RawMessage, len(form.Value))
	for k, vs := range form.Value {
		if len(vs) == 0 {
			continue
		}
		v := vs[0]
		if lo.Contains(raw, k) && json.Valid([]byte(v)) {
			obj[k] = json.RawMessage(v)
			continue
		}
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		obj[k] = b
	}
	b, err := json.Marshal(obj)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dst)
}

func querySort(c fiber.Ctx) repo.Sort {
	return repo.Sort{
		Field: c.Query("sortBy"),
		Desc:  !strings.EqualFold(c.Query("sortOrder"), "asc"),
	}
}

var errInvalidDate = errors.New("Invalid date, expected YYYY-MM-DD")

// dateField accepts a calendar date or an RFC 3339 timestamp.
func dateField(s *string) (*time.Time, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	v := strings.TrimSpace(*s)
	for _, layout := range []string{time.DateOnly, time.RFC3339} {
		if t, err := time.Parse(layout, v); err == nil {
			return &t, nil
		}
	}
	return nil, errInvalidDate
}
