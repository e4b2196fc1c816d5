package models

import (
	"fmt"
	"sort"
	"strings"
)

// Photo is an image attached to a document create or update.
type Photo struct {
	Filename    string
	ContentType string
	Data        []byte
}

type PersonalInformationInput struct {
	Familya         string `json:"familya"`
	Ism             string `json:"ism"`
	Sharif          string `json:"sharif"`
	TugilganSana    Date   `json:"tugilgan_sana"`
	TugilganJoyi    string `json:"tugilgan_joyi"`
	Millati         string `json:"millati"`
	Partiyaviyligi  string `json:"partiyaviyligi,omitempty"`
	XalqDeputatlari string `json:"xalq_deputatlari,omitempty"`
}

type WorkExperienceInput struct {
	StartDate Date   `json:"start_date"`
	EndDate   *Date  `json:"end_date,omitempty"`
	Info      string `json:"info"`
}

// Current reports whether the job has no end date.
func (w WorkExperienceInput) Current() bool {
	return w.EndDate == nil || w.EndDate.IsZero()
}

type EducationRecordInput struct {
	Malumoti       EducationLevel `json:"malumoti"`
	Tamomlagan     string         `json:"tamomlagan,omitempty"`
	Mutaxassisligi string         `json:"mutaxassisligi,omitempty"`
	IlmiyDaraja    string         `json:"ilmiy_daraja,omitempty"`
	IlmiyUnvoni    string         `json:"ilmiy_unvoni,omitempty"`
	ChetTillari    string         `json:"chet_tillari,omitempty"`
	MaxsusUnvoni   string         `json:"maxsus_unvoni,omitempty"`
	DavlatMukofoti string         `json:"davlat_mukofoti,omitempty"`
}

type RelativeInput struct {
	Qarindoshligi  RelativeType `json:"qarindoshligi"`
	Fio            string       `json:"fio"`
	Tugilgan       string       `json:"tugilgan"`
	VafotEtgan     bool         `json:"vafot_etgan"`
	IshJoyi        string       `json:"ish_joyi,omitempty"`
	TurarJoyi      string       `json:"turar_joyi,omitempty"`
	VafotEtganYili string       `json:"vafot_etgan_yili,omitempty"`
	Kasbi          string       `json:"kasbi,omitempty"`
}

// SetDeceased switches the relative between the living and deceased field sets.
// Marking a relative deceased clears workplace and residence; marking them
// living again clears death year and occupation.
func (r *RelativeInput) SetDeceased(deceased bool) {
	if deceased == r.VafotEtgan {
		return
	}
	r.VafotEtgan = deceased
	if deceased {
		r.IshJoyi = ""
		r.TurarJoyi = ""
	} else {
		r.VafotEtganYili = ""
		r.Kasbi = ""
	}
}

// DocumentInput is the payload of a document create.
type DocumentInput struct {
	DocumentType        DocumentType             `json:"document_type"`
	Photo               *Photo                   `json:"-"`
	PersonalInformation PersonalInformationInput `json:"personal_information"`
	WorkExperiences     []WorkExperienceInput    `json:"work_experiences"`
	EducationRecords    []EducationRecordInput   `json:"education_records"`
	Relatives           []RelativeInput          `json:"relatives"`
}

// NewDocumentInput returns an empty form with one entry per repeated section.
func NewDocumentInput(t DocumentType) DocumentInput {
	return DocumentInput{
		DocumentType:     t,
		WorkExperiences:  []WorkExperienceInput{{}},
		EducationRecords: []EducationRecordInput{{Malumoti: EducationOliy}},
		Relatives:        []RelativeInput{{Qarindoshligi: RelativeOtasi}},
	}
}

// Validate checks the fields the backend requires and returns them keyed the
// way the backend keys its own validation errors.
func (in DocumentInput) Validate() error {
	fe := FieldErrors{}
	if !in.DocumentType.Valid() {
		fe.Add("document_type", "invalid document type")
	}
	pi := in.PersonalInformation
	for name, v := range map[string]string{
		"familya":       pi.Familya,
		"ism":           pi.Ism,
		"sharif":        pi.Sharif,
		"tugilgan_sana": pi.TugilganSana.String(),
		"tugilgan_joyi": pi.TugilganJoyi,
		"millati":       pi.Millati,
	} {
		if strings.TrimSpace(v) == "" {
			fe.Add("personal_information."+name, "required")
		}
	}
	validateSections(fe, in.WorkExperiences, in.EducationRecords, in.Relatives)
	return fe.Err()
}

// UpdateDocumentInput is the payload of a document update. Zero-valued parts
// are left out of the request.
type UpdateDocumentInput struct {
	DocumentType        DocumentType              `json:"document_type,omitempty"`
	Status              string                    `json:"status,omitempty"`
	Photo               *Photo                    `json:"-"`
	PersonalInformation *PersonalInformationInput `json:"personal_information,omitempty"`
	WorkExperiences     []WorkExperienceInput     `json:"work_experiences,omitempty"`
	EducationRecords    []EducationRecordInput    `json:"education_records,omitempty"`
	Relatives           []RelativeInput           `json:"relatives,omitempty"`
}

func (in UpdateDocumentInput) Validate() error {
	fe := FieldErrors{}
	if in.DocumentType != "" && !in.DocumentType.Valid() {
		fe.Add("document_type", "invalid document type")
	}
	validateSections(fe, in.WorkExperiences, in.EducationRecords, in.Relatives)
	return fe.Err()
}

func validateSections(fe FieldErrors, work []WorkExperienceInput, edu []EducationRecordInput, rel []RelativeInput) {
	for i, w := range work {
		if w.StartDate.IsZero() {
			fe.Add(fmt.Sprintf("work_experiences.%d.start_date", i), "required")
		}
		if !w.Current() && w.EndDate.Before(w.StartDate.Time) {
			fe.Add(fmt.Sprintf("work_experiences.%d.end_date", i), "must not precede start_date")
		}
	}
	for i, e := range edu {
		if !e.Malumoti.Valid() {
			fe.Add(fmt.Sprintf("education_records.%d.malumoti", i), "invalid education level")
		}
	}
	for i, r := range rel {
		if !r.Qarindoshligi.Valid() {
			fe.Add(fmt.Sprintf("relatives.%d.qarindoshligi", i), "invalid relation")
		}
		if strings.TrimSpace(r.Fio) == "" {
			fe.Add(fmt.Sprintf("relatives.%d.fio", i), "required")
		}
	}
}

// InputFromDocument converts a fetched document into an editable update payload.
func InputFromDocument(d Document) UpdateDocumentInput {
	out := UpdateDocumentInput{DocumentType: d.DocumentType, Status: d.Status}
	if p := d.PersonalInformation; p != nil {
		born, _ := ParseDate(p.TugilganSana)
		out.PersonalInformation = &PersonalInformationInput{
			Familya:         p.Familya,
			Ism:             p.Ism,
			Sharif:          p.Sharif,
			TugilganSana:    born,
			TugilganJoyi:    p.TugilganJoyi,
			Millati:         p.Millati,
			Partiyaviyligi:  p.Partiyaviyligi,
			XalqDeputatlari: p.XalqDeputatlari,
		}
	}
	for _, w := range d.WorkExperiences {
		start, _ := ParseDate(w.StartDate)
		in := WorkExperienceInput{StartDate: start, Info: w.Info}
		if end, err := ParseDate(w.EndDate); err == nil && !end.IsZero() {
			in.EndDate = &end
		}
		out.WorkExperiences = append(out.WorkExperiences, in)
	}
	for _, e := range d.EducationRecords {
		out.EducationRecords = append(out.EducationRecords, EducationRecordInput{
			Malumoti:       e.Malumoti,
			Tamomlagan:     e.Tamomlagan,
			Mutaxassisligi: e.Mutaxassisligi,
			IlmiyDaraja:    e.IlmiyDaraja,
			IlmiyUnvoni:    e.IlmiyUnvoni,
			ChetTillari:    e.ChetTillari,
			MaxsusUnvoni:   e.MaxsusUnvoni,
			DavlatMukofoti: e.DavlatMukofoti,
		})
	}
	for _, r := range d.Relatives {
		out.Relatives = append(out.Relatives, RelativeInput{
			Qarindoshligi:  r.Qarindoshligi,
			Fio:            r.Fio,
			Tugilgan:       r.Tugilgan,
			VafotEtgan:     bool(r.VafotEtgan),
			IshJoyi:        r.IshJoyi,
			TurarJoyi:      r.TurarJoyi,
			VafotEtganYili: r.VafotEtganYili,
			Kasbi:          r.Kasbi,
		})
	}
	return out
}

// FieldErrors maps a field path to its messages.
type FieldErrors map[string][]string

func (fe FieldErrors) Add(field, msg string) {
	fe[field] = append(fe[field], msg)
}

// Err returns fe as an error, or nil when it is empty.
func (fe FieldErrors) Err() error {
	if len(fe) == 0 {
		return nil
	}
	return fe
}

// Fields returns the field names in sorted order.
func (fe FieldErrors) Fields() []string {
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (fe FieldErrors) Error() string {
	parts := make([]string, 0, len(fe))
	for _, k := range fe.Fields() {
		parts = append(parts, k+": "+strings.Join(fe[k], ", "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
