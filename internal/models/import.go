package models

import "encoding/json"

// Spreadsheet column headers. Columns are matched by exact (trimmed) name.
const (
	HeaderName    = "Họ và tên"
	HeaderTitle   = "Chức vụ"
	HeaderCompany = "Tên công ty"
	HeaderPhone1  = "Số điện thoại 1"
	HeaderPhone2  = "Số điện thoại 2"
	HeaderEmail1  = "Email 1"
	HeaderEmail2  = "Email 2"
	HeaderAddress = "Địa chỉ"
	HeaderCover   = "Ảnh bìa"
)

// Headers lists every expected column in template order
var Headers = []string{
	HeaderName, HeaderTitle, HeaderCompany, HeaderPhone1, HeaderPhone2,
	HeaderEmail1, HeaderEmail2, HeaderAddress, HeaderCover,
}

// RequiredHeaders must be present in an uploaded header row
var RequiredHeaders = []string{
	HeaderName, HeaderTitle, HeaderCompany, HeaderPhone1, HeaderEmail1, HeaderCover,
}

// ImportRow is one data line of an uploaded spreadsheet.
// It encodes to JSON keyed by the column headers.
type ImportRow struct {
	Name    string
	Title   string
	Company string
	Phone1  string
	Phone2  string
	Email1  string
	Email2  string
	Address string
	Cover   string
}

// Field returns the field bound to a column header, or nil for unknown headers
func (r *ImportRow) Field(header string) *string {
	switch header {
	case HeaderName:
		return &r.Name
	case HeaderTitle:
		return &r.Title
	case HeaderCompany:
		return &r.Company
	case HeaderPhone1:
		return &r.Phone1
	case HeaderPhone2:
		return &r.Phone2
	case HeaderEmail1:
		return &r.Email1
	case HeaderEmail2:
		return &r.Email2
	case HeaderAddress:
		return &r.Address
	case HeaderCover:
		return &r.Cover
	}
	return nil
}

func (r ImportRow) MarshalJSON() ([]byte, error) {
	out := make(map[string]string, len(Headers))
	for _, h := range Headers {
		v := *r.Field(h)
		if v == "" && !isRequiredHeader(h) {
			continue
		}
		out[h] = v
	}
	return json.Marshal(out)
}

func (r *ImportRow) UnmarshalJSON(data []byte) error {
	var in map[string]string
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	for h, v := range in {
		if f := r.Field(h); f != nil {
			*f = v
		}
	}
	return nil
}

func isRequiredHeader(h string) bool {
	for _, r := range RequiredHeaders {
		if r == h {
			return true
		}
	}
	return false
}

// ProcessedCard is a validated, normalized import row.
// Empty optional fields are omitted from the encoded form.
type ProcessedCard struct {
	Name       string `json:"name"`
	Title      string `json:"title"`
	Company    string `json:"company"`
	Phone1     string `json:"phone1"`
	Phone2     string `json:"phone2,omitempty"`
	Email1     string `json:"email1"`
	Email2     string `json:"email2,omitempty"`
	Address    string `json:"address,omitempty"`
	CoverImage string `json:"coverImage"`
}

// RowError reports why one spreadsheet row was rejected
type RowError struct {
	Row    int       `json:"row"`
	Errors []string  `json:"errors"`
	Data   ImportRow `json:"data"`
}

// ImportResult is the outcome of one import request
type ImportResult struct {
	JobID        string     `json:"jobId,omitempty"`
	Success      bool       `json:"success"`
	TotalRows    int        `json:"totalRows"`
	SuccessRows  int        `json:"successRows"`
	ErrorRows    []RowError `json:"errorRows"`
	CreatedCards []string   `json:"createdCards"`
	Message      string     `json:"message"`
}
