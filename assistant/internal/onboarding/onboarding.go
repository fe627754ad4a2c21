// Package onboarding greets the driver and collects the initial preference
// document.
package onboarding

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/xiaot623/gogo/assistant/internal/domain"
)

// Greetings spoken at start-up.
const (
	WelcomeNew = "Hello! I'm delighted to welcome you on board. I'm your driving assistant, at your service to navigate according " +
		"to your points of interest. Before we start, please answer a few questions so that I can get to know your preferences better."
	WelcomeBack = "Hello! I'm delighted to welcome you on board. I'm your driving assistant, at your service to navigate according " +
		"to your points of interest. Let's get started."
)

// Greeting returns the welcome for a driver with or without preferences.
func Greeting(hasPreferences bool) string {
	if hasPreferences {
		return WelcomeBack
	}
	return WelcomeNew
}

// ErrAborted is returned when the input ends before the questionnaire does.
var ErrAborted = errors.New("questionnaire aborted")

// Questionnaire asks the preference questions on a line-oriented terminal.
type Questionnaire struct {
	in      *bufio.Reader
	out     io.Writer
	heading *color.Color
}

// NewQuestionnaire reads answers from r and writes prompts to w. Pass a
// *bufio.Reader to share buffered input with a later reader.
func NewQuestionnaire(r io.Reader, w io.Writer) *Questionnaire {
	return &Questionnaire{
		in:      bufio.NewReader(r),
		out:     w,
		heading: color.New(color.FgGreen, color.Bold),
	}
}

// Run asks every question and returns the new document with empty histories.
func (q *Questionnaire) Run() (*domain.Preferences, error) {
	var p domain.Preferences
	var err error
	ask := func(f func() error) {
		if err == nil {
			err = f()
		}
	}

	fmt.Fprintln(q.out, "Initializing user preferences:")
	fmt.Fprintln(q.out)

	q.heading.Fprintln(q.out, "Preferences - Stations")
	ask(func() (e error) {
		p.Stations.FuelType, e = q.word("Fuel type (electric / diesel / gas): ")
		return
	})
	ask(func() (e error) {
		p.Stations.PreferredProviders, e = q.list("Preferred providers (comma-separated): ")
		return
	})
	ask(func() (e error) {
		p.Stations.MaxDetourKm, e = q.number("Maximum allowed detour (in km): ")
		return
	})
	ask(func() (e error) {
		p.Stations.Avoid, e = q.list("Things to avoid (e.g. highway stations, comma-separated): ")
		return
	})
	if err == nil && p.Stations.FuelType == "electric" {
		ask(func() error {
			kw, e := q.number("Minimum required charging power (in kW): ")
			p.Stations.ChargingPowerMinKW = &kw
			return e
		})
	}

	fmt.Fprintln(q.out)
	q.heading.Fprintln(q.out, "Preferences - Restaurants")
	r := &p.Restaurants
	ask(func() (e error) {
		r.PreferredCuisineTypes, e = q.list("Preferred cuisine types (comma-separated): ")
		return
	})
	ask(func() (e error) {
		r.AverageBudget, e = q.word("Average budget ('cheap', 'moderate', 'expensive'): ")
		return
	})
	ask(func() (e error) {
		r.MaxDistanceFromRouteKm, e = q.number("Maximum distance from route (in km): ")
		return
	})
	ask(func() (e error) {
		r.SpecialNeeds, e = q.list("Special needs (vegan, halal, gluten-free, allergies - comma-separated): ")
		return
	})
	ask(func() (e error) {
		r.DesiredAmbiance, e = q.text("Preferred ambiance (calm, romantic, family, etc.): ")
		return
	})
	ask(func() (e error) {
		r.BlacklistedRestaurants, e = q.list("Chains/restaurants to avoid (comma-separated): ")
		return
	})
	ask(func() (e error) {
		r.ReservationPreference, e = q.word("Prefer restaurants with reservation? (yes/no): ")
		return
	})
	ask(func() (e error) {
		r.MinRating, e = q.number("Minimum acceptable rating (e.g. 4.0): ")
		return
	})

	fmt.Fprintln(q.out)
	q.heading.Fprintln(q.out, "Preferences - Hobbies")
	h := &p.Hobbies
	ask(func() (e error) {
		h.PreferredActivityTypes, e = q.list("Preferred activity types (museums, hiking, etc. - comma-separated): ")
		return
	})
	ask(func() (e error) {
		h.IndoorOrOutdoor, e = q.word("Indoor or outdoor preference (indoor / outdoor / both): ")
		return
	})
	ask(func() (e error) {
		h.MaxDistanceFromRouteKm, e = q.number("Maximum distance from route (in km): ")
		return
	})
	ask(func() (e error) {
		h.MaxBudgetPerActivity, e = q.word("Maximum budget per activity ('cheap', 'moderate', 'expensive'): ")
		return
	})
	ask(func() (e error) {
		h.EasyAccessOrParking, e = q.word("Require easy access or parking? (yes/no): ")
		return
	})
	ask(func() (e error) {
		h.Availability, e = q.word("Only recommend activities without reservation? (yes/no): ")
		return
	})
	ask(func() (e error) {
		h.MinRating, e = q.number("Minimum acceptable rating (e.g. 4.0): ")
		return
	})
	if err != nil {
		return nil, err
	}

	p.Stations.History = []domain.HistoryEntry{}
	p.Restaurants.History = []domain.HistoryEntry{}
	p.Hobbies.History = []domain.HistoryEntry{}
	return &p, nil
}

func (q *Questionnaire) text(prompt string) (string, error) {
	fmt.Fprint(q.out, prompt)
	line, err := q.in.ReadString('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return "", err
		}
		if line == "" {
			return "", ErrAborted
		}
	}
	return strings.TrimSpace(line), nil
}

func (q *Questionnaire) word(prompt string) (string, error) {
	s, err := q.text(prompt)
	return strings.ToLower(s), err
}

// list splits a comma-separated answer and drops empty items.
func (q *Questionnaire) list(prompt string) ([]string, error) {
	s, err := q.text(prompt)
	if err != nil {
		return nil, err
	}
	items := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	return items, nil
}

// number repeats the question until the answer parses.
func (q *Questionnaire) number(prompt string) (float64, error) {
	for {
		s, err := q.text(prompt)
		if err != nil {
			return 0, err
		}
		v, err := strconv.ParseFloat(s, 64)
		if err == nil && v >= 0 {
			return v, nil
		}
		fmt.Fprintln(q.out, "Please enter a non-negative number.")
	}
}
