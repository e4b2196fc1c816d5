package models

import (
	"strings"
	"time"
)

type DocumentType string

const (
	DocumentObyektivka      DocumentType = "obyektivka"
	DocumentIshgaOlishAriza DocumentType = "ishga_olish_ariza"
	DocumentKochirishAriza  DocumentType = "kochirish_ariza"
)

var DocumentTypes = []DocumentType{DocumentObyektivka, DocumentIshgaOlishAriza, DocumentKochirishAriza}

func (t DocumentType) Valid() bool {
	for _, v := range DocumentTypes {
		if v == t {
			return true
		}
	}
	return false
}

// DocumentTypeLabel returns the list-view label of a document type.
// Unknown types are returned unchanged.
func DocumentTypeLabel(t DocumentType) string {
	switch t {
	case DocumentObyektivka:
		return "Obyektivka"
	case DocumentIshgaOlishAriza:
		return "Ishga olish bo'yicha ariza"
	case DocumentKochirishAriza:
		return "Ko'chirish bo'yicha ariza"
	default:
		return string(t)
	}
}

type EducationLevel string

const (
	EducationOliy   EducationLevel = "Олий"
	EducationMaxsus EducationLevel = "Махсус"
	EducationOrta   EducationLevel = "Ўрта"
)

var EducationLevels = []EducationLevel{EducationOliy, EducationMaxsus, EducationOrta}

func (l EducationLevel) Valid() bool {
	for _, v := range EducationLevels {
		if v == l {
			return true
		}
	}
	return false
}

type RelativeType string

const (
	RelativeOtasi RelativeType = "Otasi"
	RelativeOnasi RelativeType = "Onasi"
	RelativeAkasi RelativeType = "Akasi"
	RelativeUkasi RelativeType = "Ukasi"
	RelativeOpasi RelativeType = "Opasi"
)

var RelativeTypes = []RelativeType{RelativeOtasi, RelativeOnasi, RelativeAkasi, RelativeUkasi, RelativeOpasi}

func (r RelativeType) Valid() bool {
	for _, v := range RelativeTypes {
		if v == r {
			return true
		}
	}
	return false
}

type PersonalInformation struct {
	ID              int64     `json:"id"`
	DocumentID      int64     `json:"document_id"`
	Familya         string    `json:"familya"`
	Ism             string    `json:"ism"`
	Sharif          string    `json:"sharif"`
	PhotoPath       string    `json:"photo_path,omitempty"`
	TugilganSana    string    `json:"tugilgan_sana"`
	TugilganJoyi    string    `json:"tugilgan_joyi"`
	Millati         string    `json:"millati"`
	Partiyaviyligi  string    `json:"partiyaviyligi,omitempty"`
	XalqDeputatlari string    `json:"xalq_deputatlari,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// FullName is familya, ism and sharif joined by spaces.
func (p PersonalInformation) FullName() string {
	return strings.Join(strings.Fields(p.Familya+" "+p.Ism+" "+p.Sharif), " ")
}

type EducationRecord struct {
	ID             int64          `json:"id"`
	DocumentID     int64          `json:"document_id"`
	Malumoti       EducationLevel `json:"malumoti"`
	Tamomlagan     string         `json:"tamomlagan,omitempty"`
	Mutaxassisligi string         `json:"mutaxassisligi,omitempty"`
	IlmiyDaraja    string         `json:"ilmiy_daraja,omitempty"`
	IlmiyUnvoni    string         `json:"ilmiy_unvoni,omitempty"`
	ChetTillari    string         `json:"chet_tillari,omitempty"`
	MaxsusUnvoni   string         `json:"maxsus_unvoni,omitempty"`
	DavlatMukofoti string         `json:"davlat_mukofoti,omitempty"`
	OrderIndex     int            `json:"order_index"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

type Relative struct {
	ID             int64        `json:"id"`
	DocumentID     int64        `json:"document_id"`
	Qarindoshligi  RelativeType `json:"qarindoshligi"`
	Fio            string       `json:"fio"`
	Tugilgan       string       `json:"tugilgan"`
	VafotEtgan     Flag         `json:"vafot_etgan"`
	IshJoyi        string       `json:"ish_joyi,omitempty"`
	TurarJoyi      string       `json:"turar_joyi,omitempty"`
	VafotEtganYili string       `json:"vafot_etgan_yili,omitempty"`
	Kasbi          string       `json:"kasbi,omitempty"`
	OrderIndex     int          `json:"order_index"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

type WorkExperience struct {
	ID         int64     `json:"id"`
	DocumentID int64     `json:"document_id"`
	StartDate  string    `json:"start_date"`
	EndDate    string    `json:"end_date,omitempty"`
	Info       string    `json:"info"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type Document struct {
	ID                  int64                `json:"id"`
	UserID              int64                `json:"user_id"`
	DocumentType        DocumentType         `json:"document_type"`
	Status              string               `json:"status"`
	CreatedAt           time.Time            `json:"created_at"`
	UpdatedAt           time.Time            `json:"updated_at"`
	PersonalInformation *PersonalInformation `json:"personal_information,omitempty"`
	EducationRecords    []EducationRecord    `json:"education_records,omitempty"`
	Relatives           []Relative           `json:"relatives,omitempty"`
	WorkExperiences     []WorkExperience     `json:"work_experiences,omitempty"`
}

// Title is the label shown in lists: the type label followed by the owner's name.
func (d Document) Title() string {
	label := DocumentTypeLabel(d.DocumentType)
	if d.PersonalInformation == nil {
		return label
	}
	if name := d.PersonalInformation.FullName(); name != "" {
		return label + ": " + name
	}
	return label
}
