package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	questionTemplateConstant            = "%s: "
	questionWithDefaultTemplateConstant = "%s [%s]: "
	choiceTemplateConstant              = "  %d) %s\n"
	selectionTemplateConstant           = "%s [1-%d]: "
	invalidChoiceTemplateConstant       = "enter a number between 1 and %d\n"
)

var (
	// ErrNoAnswer indicates input ended before a required answer was given.
	ErrNoAnswer = errors.New("no answer provided")
	// ErrNoChoices indicates a selection was requested without options.
	ErrNoChoices = errors.New("no choices to select from")
)

// Choice is one selectable option.
type Choice struct {
	Value string
	Label string
}

// IOPrompter reads answers line by line from an io.Reader.
type IOPrompter struct {
	reader *bufio.Reader
	writer io.Writer
}

// NewIOPrompter constructs a prompter from the provided reader and writer.
func NewIOPrompter(input io.Reader, output io.Writer) *IOPrompter {
	return &IOPrompter{reader: bufio.NewReader(input), writer: output}
}

// Ask requests a value. An empty answer yields defaultValue; with no default the question repeats.
func (prompter *IOPrompter) Ask(question string, defaultValue string) (string, error) {
	for {
		prompt := fmt.Sprintf(questionTemplateConstant, question)
		if len(defaultValue) > 0 {
			prompt = fmt.Sprintf(questionWithDefaultTemplateConstant, question, defaultValue)
		}
		if writeError := prompter.write(prompt); writeError != nil {
			return "", writeError
		}

		answer, endOfInput, readError := prompter.readLine()
		if readError != nil {
			return "", readError
		}
		if len(answer) > 0 {
			return answer, nil
		}
		if len(defaultValue) > 0 {
			return defaultValue, nil
		}
		if endOfInput {
			return "", ErrNoAnswer
		}
	}
}

// Select lists choices and returns the chosen one, repeating until a valid number is entered.
func (prompter *IOPrompter) Select(question string, choices []Choice) (Choice, error) {
	if len(choices) == 0 {
		return Choice{}, ErrNoChoices
	}
	for choiceIndex, choice := range choices {
		if writeError := prompter.write(fmt.Sprintf(choiceTemplateConstant, choiceIndex+1, choice.Label)); writeError != nil {
			return Choice{}, writeError
		}
	}
	for {
		if writeError := prompter.write(fmt.Sprintf(selectionTemplateConstant, question, len(choices))); writeError != nil {
			return Choice{}, writeError
		}
		answer, endOfInput, readError := prompter.readLine()
		if readError != nil {
			return Choice{}, readError
		}
		if selected, parseError := strconv.Atoi(answer); parseError == nil && selected >= 1 && selected <= len(choices) {
			return choices[selected-1], nil
		}
		if endOfInput {
			return Choice{}, ErrNoAnswer
		}
		if writeError := prompter.write(fmt.Sprintf(invalidChoiceTemplateConstant, len(choices))); writeError != nil {
			return Choice{}, writeError
		}
	}
}

func (prompter *IOPrompter) write(text string) error {
	if prompter.writer == nil {
		return nil
	}
	_, writeError := io.WriteString(prompter.writer, text)
	return writeError
}

// readLine returns the trimmed line and whether input is exhausted.
func (prompter *IOPrompter) readLine() (string, bool, error) {
	line, readError := prompter.reader.ReadString('\n')
	if readError != nil && !errors.Is(readError, io.EOF) {
		return "", false, readError
	}
	return strings.TrimSpace(line), readError != nil, nil
}
