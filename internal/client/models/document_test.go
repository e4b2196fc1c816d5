package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelativeInput_SetDeceased(t *testing.T) {
	r := RelativeInput{
		Qarindoshligi: RelativeOtasi,
		Fio:           "Aliyev Vali",
		Tugilgan:      "1950, Toshkent",
		IshJoyi:       "Pensiyada",
		TurarJoyi:     "Toshkent sh.",
	}

	r.SetDeceased(true)
	assert.True(t, r.VafotEtgan)
	assert.Empty(t, r.IshJoyi)
	assert.Empty(t, r.TurarJoyi)
	assert.Equal(t, "Aliyev Vali", r.Fio)

	r.VafotEtganYili = "2015"
	r.Kasbi = "O'qituvchi"

	r.SetDeceased(false)
	assert.False(t, r.VafotEtgan)
	assert.Empty(t, r.VafotEtganYili)
	assert.Empty(t, r.Kasbi)
}

func TestRelativeInput_SetDeceasedSameValueKeepsFields(t *testing.T) {
	r := RelativeInput{VafotEtgan: true, VafotEtganYili: "2001", Kasbi: "Shifokor"}
	r.SetDeceased(true)
	assert.Equal(t, "2001", r.VafotEtganYili)
	assert.Equal(t, "Shifokor", r.Kasbi)
}

func TestDocumentTypeLabel(t *testing.T) {
	tests := []struct {
		in   DocumentType
		want string
	}{
		{DocumentObyektivka, "Obyektivka"},
		{DocumentIshgaOlishAriza, "Ishga olish bo'yicha ariza"},
		{DocumentKochirishAriza, "Ko'chirish bo'yicha ariza"},
		{"boshqa", "boshqa"},
	}
	for _, tt := range tests {
		t.Run(string(tt.in), func(t *testing.T) {
			assert.Equal(t, tt.want, DocumentTypeLabel(tt.in))
		})
	}
}

func TestDocument_DecodeBackendPayload(t *testing.T) {
	payload := `{
		"id": 7, "user_id": 3, "document_type": "obyektivka", "status": "draft",
		"created_at": "2024-03-01T10:00:00.000000Z", "updated_at": "2024-03-01T10:00:00.000000Z",
		"personal_information": {"familya": "Aliyev", "ism": "Vali", "sharif": "Olimovich",
			"photo_path": null, "tugilgan_sana": "1990-05-01", "partiyaviyligi": null},
		"relatives": [{"qarindoshligi": "Otasi", "fio": "Aliyev Olim", "vafot_etgan": 1, "kasbi": "Muhandis"}],
		"work_experiences": [{"start_date": "2015-09-01", "end_date": null, "info": "Dasturchi"}]
	}`

	var d Document
	require.NoError(t, json.Unmarshal([]byte(payload), &d))

	assert.Equal(t, int64(7), d.ID)
	require.NotNil(t, d.PersonalInformation)
	assert.Empty(t, d.PersonalInformation.PhotoPath)
	assert.Equal(t, "Obyektivka: Aliyev Vali Olimovich", d.Title())
	require.Len(t, d.Relatives, 1)
	assert.True(t, bool(d.Relatives[0].VafotEtgan))
	assert.Empty(t, d.WorkExperiences[0].EndDate)
}

func TestInputFromDocument(t *testing.T) {
	d := Document{
		DocumentType: DocumentObyektivka,
		Status:       "draft",
		PersonalInformation: &PersonalInformation{
			Familya: "Aliyev", Ism: "Vali", Sharif: "Olimovich",
			TugilganSana: "1990-05-01T00:00:00.000000Z", Millati: "o'zbek",
		},
		WorkExperiences: []WorkExperience{
			{StartDate: "2010-01-15", EndDate: "2014-06-30", Info: "Talaba"},
			{StartDate: "2015-09-01", Info: "Dasturchi"},
		},
		Relatives: []Relative{{Qarindoshligi: RelativeOnasi, Fio: "Aliyeva Zuhra", VafotEtgan: true, Kasbi: "Vrach"}},
	}

	in := InputFromDocument(d)

	end := NewDate(2014, time.June, 30)
	want := UpdateDocumentInput{
		DocumentType: DocumentObyektivka,
		Status:       "draft",
		PersonalInformation: &PersonalInformationInput{
			Familya: "Aliyev", Ism: "Vali", Sharif: "Olimovich",
			TugilganSana: NewDate(1990, time.May, 1), Millati: "o'zbek",
		},
		WorkExperiences: []WorkExperienceInput{
			{StartDate: NewDate(2010, time.January, 15), EndDate: &end, Info: "Talaba"},
			{StartDate: NewDate(2015, time.September, 1), Info: "Dasturchi"},
		},
		Relatives: []RelativeInput{{Qarindoshligi: RelativeOnasi, Fio: "Aliyeva Zuhra", VafotEtgan: true, Kasbi: "Vrach"}},
	}
	if diff := cmp.Diff(want, in); diff != "" {
		t.Errorf("InputFromDocument mismatch (-want +got):\n%s", diff)
	}
}

func TestDocumentInput_Validate(t *testing.T) {
	in := NewDocumentInput(DocumentObyektivka)
	err := in.Validate()
	require.Error(t, err)

	var fe FieldErrors
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, fe, "personal_information.familya")
	assert.Contains(t, fe, "work_experiences.0.start_date")
	assert.Contains(t, fe, "relatives.0.fio")
	assert.NotContains(t, fe, "document_type")

	in.PersonalInformation = PersonalInformationInput{
		Familya: "Aliyev", Ism: "Vali", Sharif: "Olimovich",
		TugilganSana: NewDate(1990, time.May, 1), TugilganJoyi: "Toshkent", Millati: "o'zbek",
	}
	in.WorkExperiences[0] = WorkExperienceInput{StartDate: NewDate(2015, time.September, 1), Info: "Dasturchi"}
	in.Relatives[0].Fio = "Aliyev Olim"
	assert.NoError(t, in.Validate())
}

func TestDate_JSON(t *testing.T) {
	var w WorkExperienceInput
	require.NoError(t, json.Unmarshal([]byte(`{"start_date":"2015-09-01","end_date":null,"info":"x"}`), &w))
	assert.Equal(t, "2015-09-01", w.StartDate.String())
	assert.True(t, w.Current())

	b, err := json.Marshal(w)
	require.NoError(t, err)
	assert.JSONEq(t, `{"start_date":"2015-09-01","info":"x"}`, string(b))

	_, err = ParseDate("01.09.2015")
	assert.Error(t, err)
}
