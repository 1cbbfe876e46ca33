package forge

import (
	"fmt"
	"strings"
)

const (
	generatorSystemPrompt  = "You are an expert developer."
	reviewerSystemPrompt   = "You are an expert code reviewer and fixer."
	aggregatorSystemPrompt = "You are an expert code aggregator."
	analystSystemPrompt    = "You are an expert quality assurance and improvement assistant."

	currentFilesHeader    = "\n\nCurrent website files:\n"
	preAnalysisHeader     = "\n\nIncorporate the following improvements:\n"
	postAnalysisHeader    = "\n\nIncorporate the following improvements based on the latest gap analysis:\n"
	revisionSeparator     = "-----------------\n"
	aggregatorInstruction = "Merge the best improvements and provide a final version of the code. " +
		"If one reviewer made a better change for a given section, choose that version. " +
		"Explain your reasoning briefly in a summary before the code."
)

func reviewPrompt(instruction, code string) string {
	return instruction + "\n\nHere is the code:\n" + code
}

func aggregatePrompt(original string, revisions []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "I have an original piece of code and %s provided by independent reviewers. \n", revisionCount(len(revisions)))
	b.WriteString("Please compare the following:\n\n")
	b.WriteString("Original Code:\n")
	b.WriteString(revisionSeparator)
	b.WriteString(original)
	b.WriteString("\n\n")
	for i, revision := range revisions {
		fmt.Fprintf(&b, "Reviewer %d Revised Code:\n", i+1)
		b.WriteString(revisionSeparator)
		b.WriteString(revision)
		b.WriteString("\n\n")
	}
	b.WriteString(aggregatorInstruction)
	return b.String()
}

var countWords = []string{"zero", "one", "two", "three", "four", "five", "six", "seven", "eight", "nine", "ten"}

func revisionCount(n int) string {
	word := fmt.Sprint(n)
	if n >= 0 && n < len(countWords) {
		word = countWords[n]
	}
	if n == 1 {
		return word + " revised version"
	}
	return word + " revised versions"
}

func analysisPrompt(subject, code string) string {
	return fmt.Sprintf(
		"Please review the following code for %s. Identify any missing features or improvements, and provide suggestions on what to add or fix. \n\n%s",
		subject, code,
	)
}

// preRunPrompt extends base with the files already on disk and the analyst's
// suggestions for them.
func preRunPrompt(base, currentFiles, analysis string) string {
	return base + currentFilesHeader + currentFiles + preAnalysisHeader + analysis
}

// nextBasePrompt rebuilds the base prompt for the following iteration from
// the original request and the latest analysis.
func nextBasePrompt(original, analysis string) string {
	return original + postAnalysisHeader + analysis
}
