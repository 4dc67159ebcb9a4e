package orgmode

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/harrisonrobin/tasksync/pkg/model"
)

// ErrDuplicateID is returned when two headings carry the same :ID:.
var ErrDuplicateID = errors.New("duplicate org heading id")

var (
	headingRegex  = regexp.MustCompile(`^(\*+)\s+(TODO|DONE)\s+(?:\[#([A-Z])\]\s*)?(.*?)(?:\s+(:[\w@:]+:))?\s*$`)
	otherHeading  = regexp.MustCompile(`^\*+\s`)
	idRegex       = regexp.MustCompile(`^:ID:\s+(\S+)`)
	planningRegex = regexp.MustCompile(`^(DEADLINE|SCHEDULED|CLOSED):`)
)

// parseFile parses an Org-mode file and returns a slice of tasks.
func parseFile(filePath string) ([]model.Task, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return Parse(file)
}

// ParseFiles parses multiple Org-mode files and returns a slice of tasks.
func ParseFiles(filePaths []string) ([]model.Task, error) {
	var allTasks []model.Task
	seen := make(map[string]string)
	for _, filePath := range filePaths {
		tasks, err := parseFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filePath, err)
		}
		for _, t := range tasks {
			if first, dup := seen[t.ID]; dup {
				return nil, fmt.Errorf("%w: %s in %s and %s", ErrDuplicateID, t.ID, first, filePath)
			}
			seen[t.ID] = filePath
		}
		allTasks = append(allTasks, tasks...)
	}
	return allTasks, nil
}

// Parse reads TODO and DONE headings from r. Headings without an :ID:
// property are skipped since they have no stable identity.
func Parse(r io.Reader) ([]model.Task, error) {
	scanner := bufio.NewScanner(r)
	var tasks []model.Task
	var current *model.Task
	var body []string
	var dupErr error
	seen := make(map[string]bool)
	inDrawer := false

	flush := func() {
		if current != nil && current.ID != "" && current.Name != "" {
			if seen[current.ID] && dupErr == nil {
				dupErr = fmt.Errorf("%w: %s", ErrDuplicateID, current.ID)
			}
			seen[current.ID] = true
			current.Description = strings.TrimSpace(strings.Join(body, "\n"))
			tasks = append(tasks, *current)
		}
		current = nil
		body = nil
		inDrawer = false
	}

	for scanner.Scan() {
		raw := scanner.Text()
		line := strings.TrimSpace(raw)

		if matches := headingRegex.FindStringSubmatch(raw); matches != nil {
			flush()
			current = &model.Task{
				Name:       strings.TrimSpace(matches[4]),
				Completed:  matches[2] == "DONE",
				Difficulty: difficultyFor(matches[3]),
				Attribute:  attributeFor(matches[5]),
			}
			continue
		}
		if otherHeading.MatchString(raw) {
			flush()
			continue
		}
		if current == nil {
			continue
		}

		switch {
		case line == ":PROPERTIES:":
			inDrawer = true
		case line == ":END:":
			inDrawer = false
		case inDrawer:
			if matches := idRegex.FindStringSubmatch(line); matches != nil {
				current.ID = matches[1]
			}
		case planningRegex.MatchString(line):
		default:
			body = append(body, line)
		}
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if dupErr != nil {
		return nil, dupErr
	}
	return tasks, nil
}

func difficultyFor(priority string) model.Difficulty {
	switch priority {
	case "A":
		return model.Hard
	case "B":
		return model.Medium
	case "C":
		return model.Easy
	default:
		return model.Trivial
	}
}

// attributeFor picks the first tag naming an attribute, e.g. :work:intelligence:.
func attributeFor(tags string) model.Attribute {
	for _, tag := range strings.Split(strings.Trim(tags, ":"), ":") {
		if a, err := model.ParseAttribute(tag); err == nil {
			return a
		}
	}
	return model.Strength
}
