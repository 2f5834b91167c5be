package intake

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// MaxKeywords is the most keywords kept for one job description.
const MaxKeywords = 25

// Extraction is what an Extractor finds in a posting. Empty fields mean "not found".
type Extraction struct {
	Title    string   `json:"title"`
	Company  string   `json:"company"`
	Keywords []string `json:"keywords"`
}

// Extractor finds the title, company and interview keywords of a posting.
type Extractor interface {
	Extract(ctx context.Context, text string) (Extraction, error)
}

// skill is a canonical keyword and the spellings that map to it. Aliases containing an
// upper-case letter match case-sensitively, so "Go" does not match the verb.
type skill struct {
	canonical string
	aliases   []string
}

var skills = []skill{
	{"Go", []string{"Go", "golang", "go lang"}},
	{"Python", []string{"python"}},
	{"Java", []string{"java"}},
	{"JavaScript", []string{"javascript", "JS"}},
	{"TypeScript", []string{"typescript", "TS"}},
	{"Rust", []string{"Rust"}},
	{"C++", []string{"c++", "cpp"}},
	{"C#", []string{"c#", ".net"}},
	{"Ruby", []string{"ruby", "rails", "ruby on rails"}},
	{"Kotlin", []string{"kotlin"}},
	{"Swift", []string{"Swift"}},
	{"Scala", []string{"scala"}},
	{"SQL", []string{"sql"}},
	{"PostgreSQL", []string{"postgresql", "postgres"}},
	{"MySQL", []string{"mysql"}},
	{"MongoDB", []string{"mongodb", "mongo"}},
	{"Redis", []string{"redis"}},
	{"Kafka", []string{"kafka"}},
	{"RabbitMQ", []string{"rabbitmq"}},
	{"Elasticsearch", []string{"elasticsearch"}},
	{"Kubernetes", []string{"kubernetes", "k8s"}},
	{"Docker", []string{"docker"}},
	{"Terraform", []string{"terraform"}},
	{"AWS", []string{"aws", "amazon web services"}},
	{"GCP", []string{"gcp", "google cloud"}},
	{"Azure", []string{"azure"}},
	{"React", []string{"React", "reactjs", "react.js"}},
	{"Vue", []string{"vue", "vuejs", "vue.js"}},
	{"Angular", []string{"angular"}},
	{"Node.js", []string{"node.js", "nodejs"}},
	{"GraphQL", []string{"graphql"}},
	{"REST", []string{"REST", "restful"}},
	{"gRPC", []string{"grpc"}},
	{"Linux", []string{"linux"}},
	{"Git", []string{"git"}},
	{"CI/CD", []string{"ci/cd"}},
	{"Microservices", []string{"microservices", "microservice"}},
	{"Distributed Systems", []string{"distributed systems"}},
	{"System Design", []string{"system design"}},
	{"Machine Learning", []string{"machine learning", "ML"}},
	{"TensorFlow", []string{"tensorflow"}},
	{"PyTorch", []string{"pytorch"}},
	{"Spark", []string{"Spark", "apache spark"}},
	{"Airflow", []string{"airflow"}},
	{"Data Structures", []string{"data structures"}},
	{"Algorithms", []string{"algorithms"}},
	{"Agile", []string{"agile", "scrum"}},
	{"Stakeholder Management", []string{"stakeholder management"}},
	{"Product Management", []string{"product management"}},
	{"Leadership", []string{"leadership"}},
}

type aliasPattern struct {
	canonical string
	re        *regexp.Regexp
}

var (
	aliasPatterns []aliasPattern
	// lower-cased alias or canonical name -> canonical name
	canonicalNames = make(map[string]string)
)

func init() {
	for _, s := range skills {
		canonicalNames[strings.ToLower(s.canonical)] = s.canonical
		for _, alias := range s.aliases {
			canonicalNames[strings.ToLower(alias)] = s.canonical

			flags := "(?i)"
			if strings.IndexFunc(alias, unicode.IsUpper) >= 0 {
				flags = ""
			}
			re := regexp.MustCompile(flags + `(?:^|[^\w+#/])` + regexp.QuoteMeta(alias) + `(?:$|[^\w+#/])`)
			aliasPatterns = append(aliasPatterns, aliasPattern{canonical: s.canonical, re: re})
		}
	}
}

// NormalizeKeyword maps a keyword to its canonical spelling. Unknown lower-case single words
// are capitalized; everything else is kept as written.
func NormalizeKeyword(keyword string) string {
	normalized := strings.Join(strings.Fields(keyword), " ")
	if normalized == "" {
		return ""
	}
	if canonical, ok := canonicalNames[strings.ToLower(normalized)]; ok {
		return canonical
	}
	if normalized == strings.ToLower(normalized) && !strings.Contains(normalized, " ") {
		r := []rune(normalized)
		r[0] = unicode.ToUpper(r[0])
		return string(r)
	}
	return normalized
}

// NormalizeKeywords canonicalizes keywords, drops blanks and case-insensitive duplicates, and
// keeps at most MaxKeywords in their original order.
func NormalizeKeywords(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	seen := make(map[string]bool, len(keywords))
	for _, kw := range keywords {
		n := NormalizeKeyword(kw)
		key := strings.ToLower(n)
		if n == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, n)
		if len(out) == MaxKeywords {
			break
		}
	}
	return out
}

// HeuristicExtractor finds known skills in the text and reads "Title:" and "Company:" style
// labels. It never fails.
type HeuristicExtractor struct{}

// Extract returns the skills in order of first appearance.
func (HeuristicExtractor) Extract(_ context.Context, text string) (Extraction, error) {
	type hit struct {
		canonical string
		at        int
	}
	first := make(map[string]int)
	for _, p := range aliasPatterns {
		loc := p.re.FindStringIndex(text)
		if loc == nil {
			continue
		}
		if at, ok := first[p.canonical]; !ok || loc[0] < at {
			first[p.canonical] = loc[0]
		}
	}

	hits := make([]hit, 0, len(first))
	for canonical, at := range first {
		hits = append(hits, hit{canonical, at})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].at != hits[j].at {
			return hits[i].at < hits[j].at
		}
		return hits[i].canonical < hits[j].canonical
	})

	keywords := make([]string, 0, len(hits))
	for _, h := range hits {
		keywords = append(keywords, h.canonical)
	}

	return Extraction{
		Title:    labelValue(text, "title", "job title", "position", "role"),
		Company:  labelValue(text, "company", "employer", "organization"),
		Keywords: NormalizeKeywords(keywords),
	}, nil
}

// labelValue returns the value of the first "Label: value" line whose label is one of labels.
func labelValue(text string, labels ...string) string {
	for _, line := range strings.Split(text, "\n") {
		label, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		label = strings.ToLower(strings.TrimSpace(strings.TrimLeft(label, "-*# ")))
		value = strings.TrimSpace(value)
		if value == "" || len(value) > 120 {
			continue
		}
		for _, l := range labels {
			if label == l {
				return value
			}
		}
	}
	return ""
}
