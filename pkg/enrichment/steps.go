package enrichment

import (
	"context"
	"fmt"
	"strings"

	"github.com/hondana/hondana/pkg/config"
	"github.com/hondana/hondana/pkg/errcodes"
	"github.com/hondana/hondana/pkg/metadata"
)

// stepState is the working draft a record's cleanup steps read and write.
// The description chains through cleanup steps, but inference steps always
// read the raw provider text. AI tags are a single list: a full tag
// inference assigns it outright, and every field step re-flattens the
// accumulated field values over it.
type stepState struct {
	title          string
	author         string
	rawDescription string
	description    string
	baseTags       []string
	aiTags         []string
	fieldOrder     []string
	fieldValues    map[string]string
}

func (st *stepState) setField(field, value string) {
	if st.fieldValues == nil {
		st.fieldValues = map[string]string{}
	}
	if _, ok := st.fieldValues[field]; !ok {
		st.fieldOrder = append(st.fieldOrder, field)
	}
	st.fieldValues[field] = value
}

func (st *stepState) flattenFields() []string {
	tags := make([]string, 0, len(st.fieldOrder))
	for _, field := range st.fieldOrder {
		tags = append(tags, field+":"+st.fieldValues[field])
	}
	return tags
}

// workingTags unions the base tags with whatever the AI steps last produced.
// The union happens here, at read time, never inside a step.
func (st *stepState) workingTags() []string {
	tags := MergeTags([]string{}, st.baseTags)
	return MergeTags(tags, st.aiTags)
}

type step struct {
	name string
	run  func(ctx context.Context, ai metadata.AIProvider, st *stepState) error
}

// ResolveSteps maps configured step names to executors. Names outside the
// recognized set, including per-field steps whose field the provider doesn't
// offer, are rejected here so a bad configuration fails before any job runs.
func ResolveSteps(order []string, ai metadata.AIProvider) ([]step, error) {
	steps := make([]step, 0, len(order))
	for _, name := range order {
		switch {
		case name == config.InferenceStepDescriptionClean:
			steps = append(steps, step{name: name, run: runDescriptionClean})
		case name == config.InferenceStepTagInference:
			steps = append(steps, step{name: name, run: runTagInference})
		case strings.HasPrefix(name, config.InferenceStepTagFieldPrefix):
			field, ok := matchField(ai.TagInferenceFields(), strings.TrimPrefix(name, config.InferenceStepTagFieldPrefix))
			if !ok {
				return nil, errcodes.ProviderConfig(fmt.Sprintf("Unrecognized inference step %q.", name))
			}
			steps = append(steps, step{name: name, run: runTagField(field)})
		default:
			return nil, errcodes.ProviderConfig(fmt.Sprintf("Unrecognized inference step %q.", name))
		}
	}
	return steps, nil
}

func runDescriptionClean(ctx context.Context, ai metadata.AIProvider, st *stepState) error {
	cleaned, _, err := ai.CleanDescription(ctx, st.title, st.author, st.description)
	if err != nil {
		return err
	}
	if cleaned != "" {
		st.description = cleaned
	}
	return nil
}

func runTagInference(ctx context.Context, ai metadata.AIProvider, st *stepState) error {
	inferred, _, err := ai.InferTags(ctx, st.rawDescription)
	if err != nil {
		return err
	}
	st.aiTags = inferred
	return nil
}

func runTagField(field metadata.TagField) func(ctx context.Context, ai metadata.AIProvider, st *stepState) error {
	return func(ctx context.Context, ai metadata.AIProvider, st *stepState) error {
		value, _, err := ai.InferTagField(ctx, st.rawDescription, field.Field, field.Prompt)
		if err != nil {
			return err
		}
		st.setField(field.Field, value)
		st.aiTags = st.flattenFields()
		return nil
	}
}

// matchField is forgiving about casing and word separators so a configured
// "romance" or "Tag_Field" still resolves to the provider's field name.
func matchField(fields []metadata.TagField, name string) (metadata.TagField, bool) {
	canonical := func(s string) string {
		s = strings.ToLower(s)
		s = strings.ReplaceAll(s, "_", "")
		s = strings.ReplaceAll(s, " ", "")
		return s
	}
	for _, field := range fields {
		if canonical(field.Field) == canonical(name) {
			return field, true
		}
	}
	return metadata.TagField{}, false
}
