package dialogue

import (
	"fmt"
	"strings"

	"github.com/xiaot623/gogo/assistant/internal/domain"
)

const proposalInstructions = "\nAct as an AI expert specialising in the field of in-car voice assistants for driving assistance.\n" +
	"Based on the driver's request and the list of recommendations provided, intelligently and appropriately suggest\n" +
	"recommendations to the driver so that he or she can make a choice.\n"

// BuildProposalPrompt summarises a proposal window for the generator.
func BuildProposalPrompt(query string, window []domain.RankedPOI) string {
	var b strings.Builder
	fmt.Fprintf(&b, "User request: %q\n\n", query)
	b.WriteString("Here are the filtered recommendations:\n")
	for _, item := range window {
		b.WriteString("- ")
		b.WriteString(describe(item))
		b.WriteString("\n")
	}
	b.WriteString(proposalInstructions)
	return b.String()
}

// BuildFollowUpPrompt asks the generator to answer the driver's reply about
// the options currently on the table.
func BuildFollowUpPrompt(reply string, window []domain.RankedPOI) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The driver replied: %q\n\n", reply)
	b.WriteString("The options currently proposed are:\n")
	for i, item := range window {
		fmt.Fprintf(&b, "%d. %s\n", i+1, describe(item))
	}
	b.WriteString("\nAnswer briefly. If the driver has not picked one yet, help them choose by position (first, second or third).\n")
	return b.String()
}

func describe(item domain.RankedPOI) string {
	label := item.Provider
	if label == "" {
		label = item.Address
	}
	if label == "" {
		label = "N/A"
	}
	s := fmt.Sprintf("%s (%s), %s km away", item.Name, label, formatKm(item.DistanceKm))
	if item.Rating > 0 {
		s += fmt.Sprintf(", rated %.1f", item.Rating)
	}
	if item.OpenNow != nil {
		if *item.OpenNow {
			s += ", open now"
		} else {
			s += ", closed now"
		}
	}
	return s
}

func formatKm(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
