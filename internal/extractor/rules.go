package extractor

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"clinic_booking_bot/internal/calendar"
)

// Rules детерминированный извлекатель на регулярных выражениях.
// Работает без сети и служит запасным вариантом для LLM.
type Rules struct{}

// NewRules создает извлекатель на правилах
func NewRules() *Rules {
	return &Rules{}
}

// Extract реализует Extractor
func (x *Rules) Extract(ctx context.Context, req Request) (Result, error) {
	text := strings.TrimSpace(req.Text())

	switch r := req.(type) {
	case NameRequest:
		return Result{Name: extractName(text, true)}, nil
	case DateRequest:
		return Result{Date: extractDate(text, r.Reference)}, nil
	case NameDateRequest:
		return Result{
			Name: extractName(text, false),
			Date: extractDate(text, r.Reference),
		}, nil
	case TimeRequest:
		if h, ok := extractHour(text); ok {
			return Result{Hour: Hour(h)}, nil
		}
		return Result{}, nil
	case IntentRequest:
		return Result{BookingIntent: detectIntent(text)}, nil
	}
	return Result{}, nil
}

// --- имя ---

var (
	namePhraseRe = regexp.MustCompile(`(?i)\b(?:my name is|my name's|name is|name:|i am|i'm|im|this is|it's|call me)\s+([\p{L}][\p{L}'\-]*(?:\s+[\p{L}][\p{L}'\-]*){0,3})`)
	nameWordRe   = regexp.MustCompile(`^[\p{L}][\p{L}'\-]*$`)
)

// nameStopWords слова, на которых имя заканчивается
var nameStopWords = map[string]bool{
	"and": true, "on": true, "for": true, "at": true, "by": true, "the": true, "a": true, "an": true,
	"i": true, "i'd": true, "id": true, "would": true, "want": true, "like": true, "need": true,
	"please": true, "to": true, "book": true, "booking": true, "appointment": true, "schedule": true,
	"today": true, "tomorrow": true, "next": true, "this": true, "coming": true, "in": true,
	"monday": true, "tuesday": true, "wednesday": true, "thursday": true, "friday": true,
	"saturday": true, "sunday": true, "week": true, "day": true, "after": true, "from": true,
	"looking": true, "hoping": true, "available": true, "free": true, "here": true, "there": true,
	"yes": true, "no": true, "hi": true, "hello": true, "hey": true, "ok": true, "okay": true,
	"sure": true, "thanks": true, "thank": true, "you": true, "not": true, "sorry": true,
	"my": true, "name": true, "is": true, "it": true, "me": true, "with": true, "of": true,
}

func isMonthWord(w string) bool {
	_, ok := monthIndex(w)
	return ok
}

// extractName ищет имя после вводных фраз; bare разрешает ответ из одного
// имени без фразы ("Alice Tan")
func extractName(text string, bare bool) string {
	if m := namePhraseRe.FindStringSubmatch(text); m != nil {
		if name := trimName(strings.Fields(m[1])); name != "" {
			return name
		}
	}

	// "Alice, next friday"
	if !bare {
		if i := strings.IndexAny(text, ",;"); i > 0 {
			return bareName(text[:i])
		}
		return ""
	}

	return bareName(text)
}

func bareName(text string) string {
	words := strings.Fields(strings.Trim(text, " .!?"))
	if len(words) == 0 || len(words) > 3 {
		return ""
	}
	for _, w := range words {
		if !nameWordRe.MatchString(w) || nameStopWords[strings.ToLower(w)] || isMonthWord(w) {
			return ""
		}
	}
	return titleCase(words)
}

func trimName(words []string) string {
	var kept []string
	for _, w := range words {
		lw := strings.ToLower(strings.Trim(w, ".,!?"))
		if nameStopWords[lw] || isMonthWord(lw) {
			break
		}
		kept = append(kept, strings.Trim(w, ".,!?"))
	}
	if len(kept) == 0 {
		return ""
	}
	return titleCase(kept)
}

func titleCase(words []string) string {
	out := make([]string, len(words))
	for i, w := range words {
		r := []rune(strings.ToLower(w))
		r[0] = []rune(strings.ToUpper(string(r[0])))[0]
		out[i] = string(r)
	}
	return strings.Join(out, " ")
}

// --- дата ---

var (
	isoDateRe     = regexp.MustCompile(`\b(\d{4})-(\d{1,2})-(\d{1,2})\b`)
	numericDateRe = regexp.MustCompile(`\b(\d{1,2})[/.](\d{1,2})(?:[/.](\d{2,4}))?\b`)
	dayMonthRe    = regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)?\s+(?:of\s+)?([a-z]{3,9})\.?(?:,?\s+(\d{4}))?\b`)
	monthDayRe    = regexp.MustCompile(`(?i)\b([a-z]{3,9})\.?\s+(\d{1,2})(?:st|nd|rd|th)?(?:,?\s+(\d{4}))?\b`)
	inDaysRe      = regexp.MustCompile(`(?i)\bin\s+(\d{1,2}|a|an|one|two|three|four|five|six|seven|eight|nine|ten)\s+(day|days|week|weeks)\b`)
	weekdayRe     = regexp.MustCompile(`(?i)\b(?:(next|this|coming)\s+)?(mon|tues?|wed|thu(?:rs)?|fri|sat|sun)(?:day|nesday|urday|sday)?\b`)
)

var months = []string{"jan", "feb", "mar", "apr", "may", "jun", "jul", "aug", "sep", "oct", "nov", "dec"}

func monthIndex(w string) (time.Month, bool) {
	w = strings.ToLower(strings.TrimSuffix(w, "."))
	if len(w) < 3 {
		return 0, false
	}
	full := []string{"january", "february", "march", "april", "may", "june", "july",
		"august", "september", "october", "november", "december"}
	for i, m := range months {
		if strings.HasPrefix(full[i], w) && strings.HasPrefix(w, m) {
			return time.Month(i + 1), true
		}
	}
	if w == "sept" {
		return time.September, true
	}
	return 0, false
}

var weekdays = map[string]time.Weekday{
	"mon": time.Monday, "tue": time.Tuesday, "tues": time.Tuesday, "wed": time.Wednesday,
	"thu": time.Thursday, "thur": time.Thursday, "thurs": time.Thursday, "fri": time.Friday,
	"sat": time.Saturday, "sun": time.Sunday,
}

var numberWords = map[string]int{
	"a": 1, "an": 1, "one": 1, "two": 2, "three": 3, "four": 4, "five": 5, "six": 6,
	"seven": 7, "eight": 8, "nine": 9, "ten": 10, "eleven": 11, "twelve": 12,
}

// extractDate разрешает абсолютные и относительные даты относительно ref.
// Возвращает пустую строку, если дату определить нельзя.
func extractDate(text string, ref time.Time) string {
	ref = time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, time.UTC)
	lower := strings.ToLower(text)

	if m := isoDateRe.FindStringSubmatch(text); m != nil {
		return buildDate(atoi(m[1]), atoi(m[2]), atoi(m[3]))
	}

	if m := numericDateRe.FindStringSubmatch(text); m != nil {
		day, month := atoi(m[1]), atoi(m[2])
		if m[3] != "" {
			year := atoi(m[3])
			if year < 100 {
				year += 2000
			}
			return buildDate(year, month, day)
		}
		return nextOccurrence(ref, time.Month(month), day)
	}

	if m := dayMonthRe.FindStringSubmatch(text); m != nil {
		if month, ok := monthIndex(m[2]); ok {
			if m[3] != "" {
				return buildDate(atoi(m[3]), int(month), atoi(m[1]))
			}
			return nextOccurrence(ref, month, atoi(m[1]))
		}
	}

	for _, m := range monthDayRe.FindAllStringSubmatch(text, -1) {
		if month, ok := monthIndex(m[1]); ok {
			if m[3] != "" {
				return buildDate(atoi(m[3]), int(month), atoi(m[2]))
			}
			return nextOccurrence(ref, month, atoi(m[2]))
		}
	}

	switch {
	case strings.Contains(lower, "day after tomorrow"):
		return ref.AddDate(0, 0, 2).Format(calendar.DateLayout)
	case strings.Contains(lower, "tomorrow"):
		return ref.AddDate(0, 0, 1).Format(calendar.DateLayout)
	case strings.Contains(lower, "next week"):
		return ref.AddDate(0, 0, 7).Format(calendar.DateLayout)
	}

	if m := inDaysRe.FindStringSubmatch(lower); m != nil {
		n, ok := numberWords[m[1]]
		if !ok {
			n = atoi(m[1])
		}
		if strings.HasPrefix(m[2], "week") {
			n *= 7
		}
		if n > 0 {
			return ref.AddDate(0, 0, n).Format(calendar.DateLayout)
		}
	}

	if m := weekdayRe.FindStringSubmatch(lower); m != nil {
		if wd, ok := weekdays[m[2]]; ok {
			d := ref.AddDate(0, 0, 1)
			for d.Weekday() != wd {
				d = d.AddDate(0, 0, 1)
			}
			return d.Format(calendar.DateLayout)
		}
	}

	return ""
}

func buildDate(year, month, day int) string {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return ""
	}
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if d.Day() != day || int(d.Month()) != month {
		return ""
	}
	return d.Format(calendar.DateLayout)
}

// nextOccurrence первая дата с таким днем и месяцем строго после ref
func nextOccurrence(ref time.Time, month time.Month, day int) string {
	for year := ref.Year(); year <= ref.Year()+1; year++ {
		s := buildDate(year, int(month), day)
		if s == "" {
			continue
		}
		d, _ := time.Parse(calendar.DateLayout, s)
		if d.After(ref) {
			return s
		}
	}
	return ""
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return -1
	}
	return n
}

// --- время ---

var (
	hourWordRe = regexp.MustCompile(`(?i)\b(one|two|three|four|five|six|seven|eight|nine|ten|eleven|twelve)\b`)
	ampmRe     = regexp.MustCompile(`(?i)\b(\d{1,2})(?::(\d{2}))?\s*([ap])\.?\s*m\b\.?`)
	clockRe    = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\b`)
	bareHourRe = regexp.MustCompile(`(?i)\b(\d{1,2})(?:\s*o'?clock)?\b`)
)

// extractHour возвращает час в 24-часовом формате. Время без am/pm
// считается рабочим: 1-5 означает 13-17.
func extractHour(text string) (int, bool) {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "noon"), strings.Contains(lower, "midday"):
		return 12, true
	case strings.Contains(lower, "midnight"):
		return 0, true
	}

	lower = hourWordRe.ReplaceAllStringFunc(lower, func(w string) string {
		return strconv.Itoa(numberWords[w])
	})

	if m := ampmRe.FindStringSubmatch(lower); m != nil {
		h := atoi(m[1])
		if h < 1 || h > 12 {
			return 0, false
		}
		if m[3] == "p" && h != 12 {
			h += 12
		}
		if m[3] == "a" && h == 12 {
			h = 0
		}
		return h, true
	}

	if m := clockRe.FindStringSubmatch(lower); m != nil {
		return businessHour(atoi(m[1]))
	}

	if m := bareHourRe.FindStringSubmatch(lower); m != nil {
		return businessHour(atoi(m[1]))
	}

	return 0, false
}

func businessHour(h int) (int, bool) {
	switch {
	case h < 0 || h > 23:
		return 0, false
	case h >= 1 && h <= 5:
		return h + 12, true
	}
	return h, true
}

// --- намерение ---

var (
	intentRe   = regexp.MustCompile(`(?i)\b(book|booking|appointment|appointments|schedule|reserve|reservation|slot)\b`)
	negationRe = regexp.MustCompile(`(?i)\b(don't|dont|do not|not|no need|never)\b[^.?!]*\b(book|booking|appointment|schedule|reserve)`)
	questionRe = regexp.MustCompile(`(?i)^(what|how much|how long|which|when|where|why|is|are|does|do you)\b`)
)

// detectIntent распознает просьбу о записи. Вопросы о правилах записи
// ("how do I cancel an appointment?") намерением не считаются.
func detectIntent(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "yes" || t == "y" || t == "sure" {
		return true
	}
	if negationRe.MatchString(t) {
		return false
	}
	if !intentRe.MatchString(t) {
		return false
	}
	if questionRe.MatchString(t) && !strings.Contains(t, "can i") && !strings.Contains(t, "could i") {
		return false
	}
	return true
}
