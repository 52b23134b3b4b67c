package validator

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type option struct {
	Name  string  `json:"name" validate:"required"`
	Price float64 `json:"price" validate:"gte=0"`
}

type listing struct {
	Title   string   `json:"title" validate:"required"`
	Images  []string `json:"images" validate:"min=1"`
	Status  string   `json:"status" validate:"oneof=active inactive"`
	Options []option `json:"options" validate:"dive"`
}

func valid() listing {
	return listing{
		Title:   "Canva Pro",
		Images:  []string{"https://img.example/canva.png"},
		Status:  "active",
		Options: []option{{Name: "30 Day Access", Price: 499}},
	}
}

func TestValidate_Success(t *testing.T) {
	assert.NoError(t, Validate(valid()))
}

func TestValidate_ReportsJSONFieldNames(t *testing.T) {
	l := valid()
	l.Title = ""
	l.Images = nil
	l.Status = "archived"

	err := Validate(l)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	fields := verr.Fields()
	assert.Equal(t, "is required", fields["title"])
	assert.Equal(t, "must contain at least 1 item(s)", fields["images"])
	assert.Equal(t, "must be one of: active inactive", fields["status"])
}

func TestValidate_NestedPath(t *testing.T) {
	l := valid()
	l.Options = append(l.Options, option{Name: "", Price: -1})

	err := Validate(l)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	fields := verr.Fields()
	assert.Contains(t, fields, "options[1].name")
	assert.Contains(t, fields, "options[1].price")
	assert.Contains(t, err.Error(), "field 'options[1].price'")
}

func TestDecodeAndValidate(t *testing.T) {
	body := `{"title":"Cursor AI","images":["a.png"],"status":"active","options":[]}`
	r := httptest.NewRequest("POST", "/", strings.NewReader(body))

	var l listing
	require.NoError(t, DecodeAndValidate(r, &l))
	assert.Equal(t, "Cursor AI", l.Title)
}

func TestDecodeAndValidate_BadJSON(t *testing.T) {
	r := httptest.NewRequest("POST", "/", strings.NewReader("{not json"))
	var l listing
	err := DecodeAndValidate(r, &l)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode request body")
}

func TestDecode_EmptyBody(t *testing.T) {
	r := httptest.NewRequest("POST", "/", strings.NewReader(""))
	var l listing
	err := Decode(r, &l)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty body")
}

func TestDecodeAndValidate_InvalidPayload(t *testing.T) {
	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"title":"x","images":[],"status":"active"}`))
	var l listing
	err := DecodeAndValidate(r, &l)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields(), "images")
}
