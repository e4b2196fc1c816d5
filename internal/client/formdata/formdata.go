// Package formdata turns document inputs into the multipart bodies the
// backend's document create and update endpoints expect.
package formdata

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"path/filepath"
	"strconv"

	"github.com/dmitrijs2005/obyektivka/internal/client/models"
	"github.com/dmitrijs2005/obyektivka/internal/imagex"
)

const PhotoField = "photo"

// Field is one text part of the form, in the order it is written.
type Field struct {
	Key   string
	Value string
}

// Form is an assembled multipart payload before encoding.
type Form struct {
	Fields []Field
	Photo  *models.Photo
}

func (f *Form) add(key, value string) {
	f.Fields = append(f.Fields, Field{Key: key, Value: value})
}

func (f *Form) addNonEmpty(key, value string) {
	if value != "" {
		f.add(key, value)
	}
}

// Get returns the value of the first field named key.
func (f Form) Get(key string) (string, bool) {
	for _, fl := range f.Fields {
		if fl.Key == key {
			return fl.Value, true
		}
	}
	return "", false
}

// Create builds the form of a new document. Every section is written in full.
func Create(in models.DocumentInput) Form {
	var f Form
	f.add("document_type", string(in.DocumentType))
	f.Photo = in.Photo

	pi := in.PersonalInformation
	f.add(piKey("familya"), pi.Familya)
	f.add(piKey("ism"), pi.Ism)
	f.add(piKey("sharif"), pi.Sharif)
	f.add(piKey("tugilgan_sana"), pi.TugilganSana.String())
	f.add(piKey("tugilgan_joyi"), pi.TugilganJoyi)
	f.add(piKey("millati"), pi.Millati)
	f.add(piKey("partiyaviyligi"), pi.Partiyaviyligi)
	f.add(piKey("xalq_deputatlari"), pi.XalqDeputatlari)

	for i, w := range in.WorkExperiences {
		f.add(workKey(i, "start_date"), w.StartDate.String())
		f.add(workKey(i, "end_date"), endDate(w))
		f.add(workKey(i, "info"), w.Info)
	}

	f.addEducation(in.EducationRecords)
	f.addRelatives(in.Relatives)
	return f
}

// Update builds the form of a document update. Only the parts present in in
// are written.
func Update(in models.UpdateDocumentInput) Form {
	var f Form
	f.addNonEmpty("document_type", string(in.DocumentType))
	f.addNonEmpty("status", in.Status)
	f.Photo = in.Photo

	if pi := in.PersonalInformation; pi != nil {
		f.add(piKey("familya"), pi.Familya)
		f.add(piKey("ism"), pi.Ism)
		f.add(piKey("sharif"), pi.Sharif)
		f.addNonEmpty(piKey("tugilgan_sana"), pi.TugilganSana.String())
		f.add(piKey("tugilgan_joyi"), pi.TugilganJoyi)
		f.add(piKey("millati"), pi.Millati)
		f.add(piKey("partiyaviyligi"), pi.Partiyaviyligi)
		f.add(piKey("xalq_deputatlari"), pi.XalqDeputatlari)
	}

	for i, w := range in.WorkExperiences {
		f.addNonEmpty(workKey(i, "start_date"), w.StartDate.String())
		f.add(workKey(i, "end_date"), endDate(w))
		f.addNonEmpty(workKey(i, "info"), w.Info)
	}

	f.addEducation(in.EducationRecords)
	f.addRelatives(in.Relatives)
	return f
}

func (f *Form) addEducation(records []models.EducationRecordInput) {
	for i, r := range records {
		f.add(eduKey(i, "malumoti"), string(r.Malumoti))
		f.addNonEmpty(eduKey(i, "tamomlagan"), r.Tamomlagan)
		f.addNonEmpty(eduKey(i, "mutaxassisligi"), r.Mutaxassisligi)
		f.addNonEmpty(eduKey(i, "ilmiy_daraja"), r.IlmiyDaraja)
		f.addNonEmpty(eduKey(i, "ilmiy_unvoni"), r.IlmiyUnvoni)
		f.addNonEmpty(eduKey(i, "chet_tillari"), r.ChetTillari)
		f.addNonEmpty(eduKey(i, "maxsus_unvoni"), r.MaxsusUnvoni)
		f.addNonEmpty(eduKey(i, "davlat_mukofoti"), r.DavlatMukofoti)
	}
}

func (f *Form) addRelatives(relatives []models.RelativeInput) {
	for i, r := range relatives {
		f.add(relKey(i, "qarindoshligi"), string(r.Qarindoshligi))
		f.add(relKey(i, "fio"), r.Fio)
		f.add(relKey(i, "tugilgan"), r.Tugilgan)
		if r.VafotEtgan {
			f.add(relKey(i, "vafot_etgan"), "1")
			f.add(relKey(i, "vafot_etgan_yili"), r.VafotEtganYili)
			f.add(relKey(i, "kasbi"), r.Kasbi)
		} else {
			f.add(relKey(i, "vafot_etgan"), "0")
			f.add(relKey(i, "ish_joyi"), r.IshJoyi)
			f.add(relKey(i, "turar_joyi"), r.TurarJoyi)
		}
	}
}

// endDate is "" for a current job; the backend stores that as null.
func endDate(w models.WorkExperienceInput) string {
	if w.Current() {
		return ""
	}
	return w.EndDate.String()
}

func piKey(field string) string {
	return "personal_information[" + field + "]"
}

func workKey(i int, field string) string {
	return indexed("work_experiences", i, field)
}

func eduKey(i int, field string) string {
	return indexed("education_records", i, field)
}

func relKey(i int, field string) string {
	return indexed("relatives", i, field)
}

func indexed(section string, i int, field string) string {
	return section + "[" + strconv.Itoa(i) + "][" + field + "]"
}

// Encode writes the form as multipart/form-data and returns the body with its
// content type. Photos wider than maxPhotoWidth are downscaled first; formats
// that cannot be decoded are sent as they are.
func (f Form) Encode(maxPhotoWidth int) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	for _, fl := range f.Fields {
		if err := w.WriteField(fl.Key, fl.Value); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", fl.Key, err)
		}
	}

	if f.Photo != nil && len(f.Photo.Data) > 0 {
		if err := writePhoto(w, preparePhoto(*f.Photo, maxPhotoWidth)); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return body, w.FormDataContentType(), nil
}

func preparePhoto(p models.Photo, maxWidth int) models.Photo {
	if p.ContentType == "" {
		p.ContentType = imagex.ContentType(p.Data)
	}
	if p.Filename == "" {
		p.Filename = "photo"
	}
	p.Filename = filepath.Base(p.Filename)

	// undecodable data is left for the backend to reject
	if resized, err := imagex.Downscale(p.Data, p.ContentType, maxWidth); err == nil {
		p.Data = resized
	}
	return p
}

func writePhoto(w *multipart.Writer, p models.Photo) error {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, PhotoField, p.Filename))
	h.Set("Content-Type", p.ContentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return fmt.Errorf("create photo part: %w", err)
	}
	if _, err := part.Write(p.Data); err != nil {
		return fmt.Errorf("write photo: %w", err)
	}
	return nil
}
