package ai

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/v0xg/formfill/internal/form"
)

var (
	firstNames = []string{
		"Aarav", "Advait", "Arjun", "Vihaan", "Reyansh",
		"Aanya", "Diya", "Saanvi", "Myra", "Ananya",
		"Rohan", "Kabir", "Aditya", "Vivaan", "Dhruv",
		"Ishaan", "Shaurya", "Atharv", "Pranav", "Arnav",
	}
	lastNames = []string{
		"Patel", "Sharma", "Kumar", "Singh", "Verma",
		"Gupta", "Shah", "Mehta", "Desai", "Joshi",
		"Malhotra", "Kapoor", "Reddy", "Nair", "Rao",
		"Chauhan", "Chopra", "Mehra", "Iyer", "Menon",
	}
	cities = []string{
		"Mumbai", "Delhi", "Bangalore", "Hyderabad", "Chennai",
		"Kolkata", "Pune", "Ahmedabad", "Jaipur", "Surat",
		"Lucknow", "Kanpur", "Nagpur", "Indore", "Thane",
	}
	queries = []string{
		"I would like to inquire about your services and pricing.",
		"Please provide more information about your products.",
		"I am interested in collaborating with your company.",
		"Could you share details about your business solutions?",
		"I need assistance with your product offerings.",
		"Looking for more information about your company.",
		"Requesting a detailed quote for your services.",
		"Interested in learning more about your expertise.",
		"Would like to discuss a potential business opportunity.",
		"Seeking information about your consulting services.",
	}
	emailDomains = []string{"gmail.com", "yahoo.com", "outlook.com", "hotmail.com"}
)

// LocalProvider draws values from fixed sample pools without any network
// call. One person is picked per form so name and email agree.
type LocalProvider struct {
	mu     sync.Mutex
	rnd    *rand.Rand
	person string
}

// NewLocalProvider creates a provider seeded from the clock
func NewLocalProvider() *LocalProvider {
	now := uint64(time.Now().UnixNano())
	return NewSeededLocalProvider(now, now>>1)
}

// NewSeededLocalProvider creates a deterministic provider
func NewSeededLocalProvider(seed1, seed2 uint64) *LocalProvider {
	p := &LocalProvider{rnd: rand.New(rand.NewPCG(seed1, seed2))}
	p.person = p.name()
	return p
}

// NextPerson switches to a new sample person
func (p *LocalProvider) NextPerson() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.person = p.name()
}

// GenerateValue picks a value by field name first and type second
func (p *LocalProvider) GenerateValue(_ context.Context, field form.Field) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	name := strings.ToLower(field.Name)
	switch {
	case strings.Contains(name, "email") || field.Type == form.TypeEmail:
		return p.email(), nil
	case strings.Contains(name, "name"):
		return p.person, nil
	case strings.Contains(name, "phone") || strings.Contains(name, "mobile") || field.Type == form.TypeTel:
		return p.phone(), nil
	case strings.Contains(name, "message") || strings.Contains(name, "query") || field.Type == form.TypeTextarea:
		return pick(p.rnd, queries), nil
	case strings.Contains(name, "city"):
		return pick(p.rnd, cities), nil
	}

	switch field.Type {
	case form.TypeNumber, form.TypeRange:
		return p.number(field.Validation), nil
	case form.TypeDate, form.TypeURL, form.TypePassword:
		return fallbackValue(field), nil
	}
	return p.person, nil
}

func (p *LocalProvider) name() string {
	return pick(p.rnd, firstNames) + " " + pick(p.rnd, lastNames)
}

func (p *LocalProvider) email() string {
	local := strings.Join(strings.Fields(strings.ToLower(p.person)), ".")
	return local + "@" + pick(p.rnd, emailDomains)
}

// phone returns an Indian mobile number: +91, a 6-9 prefix, nine digits
func (p *LocalProvider) phone() string {
	prefix := 6 + p.rnd.IntN(4)
	return fmt.Sprintf("+91%d%d", prefix, 100000000+p.rnd.IntN(900000000))
}

func (p *LocalProvider) number(v *form.Validation) string {
	lo, hi := 1.0, 100.0
	if v != nil && v.Min != nil {
		lo = *v.Min
	}
	if v != nil && v.Max != nil {
		hi = *v.Max
	}
	first, last := int(math.Ceil(lo)), int(math.Floor(hi))
	if last < first {
		return strconv.FormatFloat(lo, 'f', -1, 64)
	}
	return strconv.Itoa(first + p.rnd.IntN(last-first+1))
}

func pick(rnd *rand.Rand, pool []string) string {
	return pool[rnd.IntN(len(pool))]
}
