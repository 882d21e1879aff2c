// Package layer1 implements the Layer-1 Validator (C5): pure row-by-row
// rule checks with no model calls and no cross-row context beyond the
// trailing duplicate-id pass.
package layer1

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/wikisoft/rosterval/internal/domain"
	"github.com/wikisoft/rosterval/internal/parser"
	"github.com/wikisoft/rosterval/internal/schema"
)

// MinimumMonthlyWage is the statutory floor a 기준급여 value is compared
// against; values below it are flagged, not rejected.
const MinimumMonthlyWage = 2_060_740

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

var genderDomain = map[string]bool{"1": true, "2": true, "1.0": true, "2.0": true, "남": true, "여": true, "m": true, "f": true}
var schemeDomain = map[string]bool{"1": true, "2": true, "3": true}

// Validate runs every per-row check and the trailing duplicate-id pass,
// returning only Errors and Warnings — Layer2/AI fields are populated
// later by the validator façade.
func Validate(parsed *domain.ParsedWorkbook, matches *domain.MatchSet, sheet domain.Sheet, reg *schema.Registry) *domain.ValidationBundle {
	bundle := &domain.ValidationBundle{}
	idx := targetIndex(matches)

	for _, row := range parsed.Rows {
		empInfo := empInfo(row, idx)
		checkRequired(&bundle.Errors, row, idx, reg.Required(sheet), empInfo)
		checkPhone(&bundle.Errors, row, idx, empInfo)
		checkEmail(&bundle.Warnings, row, idx, empInfo)
		checkBirthDate(&bundle.Errors, row, idx, empInfo)
		checkSalary(&bundle.Errors, &bundle.Warnings, row, idx, empInfo)
		checkHireDate(&bundle.Errors, &bundle.Warnings, row, idx, empInfo)
		checkTerminationDate(&bundle.Errors, &bundle.Warnings, row, idx, empInfo)
		checkNonNegative(&bundle.Errors, row, idx, empInfo)
		checkDomainValues(&bundle.Errors, row, idx, empInfo)
	}

	appendDuplicateWarnings(&bundle.Warnings, parsed.Rows, idx)

	bundle.Passed = len(bundle.Errors) == 0 && len(bundle.Warnings) == 0
	return bundle
}

func empInfo(row domain.Row, idx map[string]int) string {
	if v, ok := cell(row, idx, "사원번호"); ok {
		return v
	}
	if v, ok := cell(row, idx, "이름"); ok {
		return v
	}
	return "row:" + strconv.Itoa(row.Number)
}

// checkRequired flags blank cells in mapped required columns. A required
// field with no mapped column is reported by the matcher's
// missing-required warning, not here.
func checkRequired(errs *[]domain.Finding, row domain.Row, idx map[string]int, required []string, empInfo string) {
	for _, field := range required {
		i, mapped := idx[field]
		if !mapped {
			continue
		}
		if strings.TrimSpace(row.Get(i)) == "" {
			*errs = append(*errs, domain.Finding{
				Row: row.Number, EmpInfo: empInfo, Column: field,
				Severity: domain.SeverityError, Source: domain.SourceLayer1,
				Message: "required field is missing: " + field,
				Topic:   "required|missing:" + field,
			})
		}
	}
}

func checkPhone(errs *[]domain.Finding, row domain.Row, idx map[string]int, empInfo string) {
	v, ok := cell(row, idx, "전화번호")
	if !ok {
		return
	}
	digits := digitsOnly(v)
	if !strings.HasPrefix(digits, "0") || (len(digits) != 10 && len(digits) != 11) {
		*errs = append(*errs, domain.Finding{
			Row: row.Number, EmpInfo: empInfo, Column: "전화번호",
			Severity: domain.SeverityError, Source: domain.SourceLayer1,
			Message: "phone number format is invalid (must start with 0, 10-11 digits)",
			Topic:   "전화번호|형식오류",
		})
	}
}

func checkEmail(warns *[]domain.Finding, row domain.Row, idx map[string]int, empInfo string) {
	v, ok := cell(row, idx, "이메일")
	if !ok {
		return
	}
	if !emailPattern.MatchString(v) {
		*warns = append(*warns, domain.Finding{
			Row: row.Number, EmpInfo: empInfo, Column: "이메일",
			Severity: domain.SeverityWarn, Source: domain.SourceLayer1,
			Message: "email format looks invalid",
			Topic:   "이메일|형식경고",
		})
	}
}

func checkBirthDate(errs *[]domain.Finding, row domain.Row, idx map[string]int, empInfo string) {
	v, ok := cell(row, idx, "생년월일")
	if !ok {
		return
	}
	normalized, valid := parser.NormalizeDate(v)
	if !valid {
		*errs = append(*errs, domain.Finding{
			Row: row.Number, EmpInfo: empInfo, Column: "생년월일",
			Severity: domain.SeverityError, Source: domain.SourceLayer1,
			Message: "birth date does not normalize to YYYYMMDD",
			Topic:   "생년월일|형식오류",
		})
		return
	}
	year, _ := strconv.Atoi(normalized[:4])
	if year < 1945 || year > 2010 {
		*errs = append(*errs, domain.Finding{
			Row: row.Number, EmpInfo: empInfo, Column: "생년월일",
			Severity: domain.SeverityError, Source: domain.SourceLayer1,
			Message: "birth date year is out of range (1945-2010)",
			Topic:   "생년월일|범위오류",
		})
	}
}

func checkSalary(errs, warns *[]domain.Finding, row domain.Row, idx map[string]int, empInfo string) {
	v, ok := cell(row, idx, "기준급여")
	if !ok {
		return
	}
	amount, err := parseNumber(v)
	if err != nil || amount <= 0 {
		*errs = append(*errs, domain.Finding{
			Row: row.Number, EmpInfo: empInfo, Column: "기준급여",
			Severity: domain.SeverityError, Source: domain.SourceLayer1,
			Message: "salary must be a positive number",
			Topic:   "기준급여|형식오류",
		})
		return
	}
	if amount < MinimumMonthlyWage {
		*warns = append(*warns, domain.Finding{
			Row: row.Number, EmpInfo: empInfo, Column: "기준급여",
			Severity: domain.SeverityWarn, Source: domain.SourceLayer1,
			Message: "salary is below the statutory minimum monthly wage",
			Topic:   "기준급여|최저임금미달",
		})
	}
}

func checkHireDate(errs, warns *[]domain.Finding, row domain.Row, idx map[string]int, empInfo string) {
	hireRaw, ok := cell(row, idx, "입사일자")
	if !ok {
		return
	}
	hireNorm, hireOK := parser.NormalizeDate(hireRaw)
	if !hireOK {
		*errs = append(*errs, domain.Finding{
			Row: row.Number, EmpInfo: empInfo, Column: "입사일자",
			Severity: domain.SeverityError, Source: domain.SourceLayer1,
			Message: "hire date does not normalize to YYYYMMDD",
			Topic:   "입사일자|형식오류",
		})
		return
	}
	hireDate, _ := parser.ParseYYYYMMDD(hireNorm)
	if hireDate.After(time.Now()) {
		*errs = append(*errs, domain.Finding{
			Row: row.Number, EmpInfo: empInfo, Column: "입사일자",
			Severity: domain.SeverityError, Source: domain.SourceLayer1,
			Message: "hire date is in the future",
			Topic:   "입사일자|미래일자",
		})
	}

	birthRaw, ok := cell(row, idx, "생년월일")
	if !ok {
		return
	}
	birthNorm, birthOK := parser.NormalizeDate(birthRaw)
	if !birthOK {
		return
	}
	birthDate, _ := parser.ParseYYYYMMDD(birthNorm)

	if hireDate.Before(birthDate) {
		*errs = append(*errs, domain.Finding{
			Row: row.Number, EmpInfo: empInfo, Column: "입사일자",
			Severity: domain.SeverityError, Source: domain.SourceLayer1,
			Message: "hire date precedes birth date",
			Topic:   "입사일자|생년월일이전",
		})
		return
	}

	ageAtHire := hireDate.Sub(birthDate).Hours() / 24 / 365.25
	if ageAtHire < 18 {
		*errs = append(*errs, domain.Finding{
			Row: row.Number, EmpInfo: empInfo, Column: "입사일자",
			Severity: domain.SeverityError, Source: domain.SourceLayer1,
			Message: "age at hire is under 18",
			Topic:   "입사|나이:미만",
		})
	} else if ageAtHire > 70 {
		*warns = append(*warns, domain.Finding{
			Row: row.Number, EmpInfo: empInfo, Column: "입사일자",
			Severity: domain.SeverityWarn, Source: domain.SourceLayer1,
			Message: "age at hire is over 70",
			Topic:   "입사|나이:초과",
		})
	}
}

func checkTerminationDate(errs, warns *[]domain.Finding, row domain.Row, idx map[string]int, empInfo string) {
	retireRaw, ok := cell(row, idx, "퇴직일")
	if !ok {
		return
	}
	retireNorm, retireOK := parser.NormalizeDate(retireRaw)
	if !retireOK {
		*errs = append(*errs, domain.Finding{
			Row: row.Number, EmpInfo: empInfo, Column: "퇴직일",
			Severity: domain.SeverityError, Source: domain.SourceLayer1,
			Message: "termination/conversion date does not normalize to YYYYMMDD",
			Topic:   "퇴직일|형식오류",
		})
		return
	}
	retireDate, _ := parser.ParseYYYYMMDD(retireNorm)

	hireRaw, ok := cell(row, idx, "입사일자")
	if ok {
		if hireNorm, hireOK := parser.NormalizeDate(hireRaw); hireOK {
			hireDate, _ := parser.ParseYYYYMMDD(hireNorm)
			if retireDate.Before(hireDate) {
				*errs = append(*errs, domain.Finding{
					Row: row.Number, EmpInfo: empInfo, Column: "퇴직일",
					Severity: domain.SeverityError, Source: domain.SourceLayer1,
					Message: "termination/conversion date precedes hire date",
					Topic:   "퇴직일|입사일이전",
				})
			}
		}
	}
	if retireDate.After(time.Now()) {
		*warns = append(*warns, domain.Finding{
			Row: row.Number, EmpInfo: empInfo, Column: "퇴직일",
			Severity: domain.SeverityWarn, Source: domain.SourceLayer1,
			Message: "termination/conversion date is in the future",
			Topic:   "퇴직일|미래일자",
		})
	}
}

func checkNonNegative(errs *[]domain.Finding, row domain.Row, idx map[string]int, empInfo string) {
	for _, field := range []string{"퇴직금", "당년도퇴직금추계액", "차년도퇴직금추계액", "전입전출금액"} {
		v, ok := cell(row, idx, field)
		if !ok {
			continue
		}
		amount, err := parseNumber(v)
		if err != nil {
			*errs = append(*errs, domain.Finding{
				Row: row.Number, EmpInfo: empInfo, Column: field,
				Severity: domain.SeverityError, Source: domain.SourceLayer1,
				Message: field + " must be numeric",
				Topic:   field + "|형식오류",
			})
			continue
		}
		if amount < 0 {
			*errs = append(*errs, domain.Finding{
				Row: row.Number, EmpInfo: empInfo, Column: field,
				Severity: domain.SeverityError, Source: domain.SourceLayer1,
				Message: field + " must not be negative",
				Topic:   field + "|음수",
			})
		}
	}
}

func checkDomainValues(errs *[]domain.Finding, row domain.Row, idx map[string]int, empInfo string) {
	if v, ok := cell(row, idx, "성별"); ok && !genderDomain[strings.ToLower(v)] {
		*errs = append(*errs, domain.Finding{
			Row: row.Number, EmpInfo: empInfo, Column: "성별",
			Severity: domain.SeverityError, Source: domain.SourceLayer1,
			Message: "gender value is outside the accepted domain",
			Topic:   "성별|도메인오류",
		})
	}
	if v, ok := cell(row, idx, "제도구분"); ok && !schemeDomain[v] {
		*errs = append(*errs, domain.Finding{
			Row: row.Number, EmpInfo: empInfo, Column: "제도구분",
			Severity: domain.SeverityError, Source: domain.SourceLayer1,
			Message: "scheme value is outside the accepted domain",
			Topic:   "제도구분|도메인오류",
		})
	}
}

func appendDuplicateWarnings(warns *[]domain.Finding, rows []domain.Row, idx map[string]int) {
	i, ok := idx["사원번호"]
	if !ok {
		return
	}
	groups := make(map[string][]int)
	for _, row := range rows {
		id := row.Get(i)
		if id == "" {
			continue
		}
		groups[id] = append(groups[id], row.Number)
	}
	for id, rowNumbers := range groups {
		if len(rowNumbers) < 2 {
			continue
		}
		*warns = append(*warns, domain.Finding{
			Row: rowNumbers[0], EmpInfo: id, Column: "사원번호",
			Severity: domain.SeverityWarn, Source: domain.SourceLayer1,
			Message: "duplicate employee id across rows",
			Topic:   "사원번호|중복",
		})
	}
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func parseNumber(s string) (float64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	return strconv.ParseFloat(s, 64)
}
