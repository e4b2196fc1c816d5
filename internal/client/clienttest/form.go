package clienttest

import (
	"context"
	"net/url"
	"regexp"
	"sort"
	"strconv"

	"github.com/dmitrijs2005/obyektivka/internal/client/models"
)

type ctxUserKey struct{}

func withUser(ctx context.Context, u models.User) context.Context {
	return context.WithValue(ctx, ctxUserKey{}, u)
}

func userFrom(ctx context.Context) models.User {
	u, _ := ctx.Value(ctxUserKey{}).(models.User)
	return u
}

var (
	piField      = regexp.MustCompile(`^personal_information\[(\w+)\]$`)
	indexedField = regexp.MustCompile(`^(\w+)\[(\d+)\]\[(\w+)\]$`)
)

// applyForm writes the multipart fields onto d the way the real backend
// would: a repeated section present in the form replaces the stored one.
func applyForm(d *models.Document, form url.Values) {
	if v := form.Get("document_type"); v != "" {
		d.DocumentType = models.DocumentType(v)
	}
	if v := form.Get("status"); v != "" {
		d.Status = v
	}

	sections := map[string]map[int]map[string]string{}
	for key, vals := range form {
		if m := piField.FindStringSubmatch(key); m != nil {
			if d.PersonalInformation == nil {
				d.PersonalInformation = &models.PersonalInformation{DocumentID: d.ID}
			}
			setPersonal(d.PersonalInformation, m[1], vals[0])
			continue
		}
		if m := indexedField.FindStringSubmatch(key); m != nil {
			i, _ := strconv.Atoi(m[2])
			if sections[m[1]] == nil {
				sections[m[1]] = map[int]map[string]string{}
			}
			if sections[m[1]][i] == nil {
				sections[m[1]][i] = map[string]string{}
			}
			sections[m[1]][i][m[3]] = vals[0]
		}
	}

	if rows, ok := sections["work_experiences"]; ok {
		d.WorkExperiences = nil
		for _, row := range ordered(rows) {
			d.WorkExperiences = append(d.WorkExperiences, models.WorkExperience{
				DocumentID: d.ID, StartDate: row["start_date"], EndDate: row["end_date"], Info: row["info"],
			})
		}
	}
	if rows, ok := sections["education_records"]; ok {
		d.EducationRecords = nil
		for i, row := range ordered(rows) {
			d.EducationRecords = append(d.EducationRecords, models.EducationRecord{
				DocumentID: d.ID, Malumoti: models.EducationLevel(row["malumoti"]), Tamomlagan: row["tamomlagan"],
				Mutaxassisligi: row["mutaxassisligi"], IlmiyDaraja: row["ilmiy_daraja"], IlmiyUnvoni: row["ilmiy_unvoni"],
				ChetTillari: row["chet_tillari"], MaxsusUnvoni: row["maxsus_unvoni"], DavlatMukofoti: row["davlat_mukofoti"],
				OrderIndex: i,
			})
		}
	}
	if rows, ok := sections["relatives"]; ok {
		d.Relatives = nil
		for i, row := range ordered(rows) {
			d.Relatives = append(d.Relatives, models.Relative{
				DocumentID: d.ID, Qarindoshligi: models.RelativeType(row["qarindoshligi"]), Fio: row["fio"],
				Tugilgan: row["tugilgan"], VafotEtgan: row["vafot_etgan"] == "1", IshJoyi: row["ish_joyi"],
				TurarJoyi: row["turar_joyi"], VafotEtganYili: row["vafot_etgan_yili"], Kasbi: row["kasbi"],
				OrderIndex: i,
			})
		}
	}
}

func ordered(rows map[int]map[string]string) []map[string]string {
	idx := make([]int, 0, len(rows))
	for i := range rows {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	out := make([]map[string]string, 0, len(idx))
	for _, i := range idx {
		out = append(out, rows[i])
	}
	return out
}

func setPersonal(p *models.PersonalInformation, field, v string) {
	switch field {
	case "familya":
		p.Familya = v
	case "ism":
		p.Ism = v
	case "sharif":
		p.Sharif = v
	case "tugilgan_sana":
		p.TugilganSana = v
	case "tugilgan_joyi":
		p.TugilganJoyi = v
	case "millati":
		p.Millati = v
	case "partiyaviyligi":
		p.Partiyaviyligi = v
	case "xalq_deputatlari":
		p.XalqDeputatlari = v
	}
}
