// Package pipeline parses and executes shell-style command pipelines:
// whitespace-delimited argv tokens, `|`-separated stages, external
// programs resolved through PATH.
package pipeline

import "strings"

// MaxTokensPerStage bounds how many argv tokens a single pipeline stage
// may carry.
const MaxTokensPerStage = 16

// MaxStages bounds how many `|`-separated stages a pipeline may contain.
const MaxStages = 16

// Stage is a single pipeline stage: a program name plus its arguments.
type Stage struct {
	Argv []string
}

// ParseArgv splits line into whitespace-delimited tokens. Any run of
// space or tab characters is treated as a single delimiter; empty tokens
// are never produced. At most MaxTokensPerStage*MaxStages tokens are kept
// to bound pathological input before ParsePipeline further caps stage
// count.
func ParseArgv(line string) []string {
	tokens := strings.FieldsFunc(line, func(r rune) bool {
		return r == ' ' || r == '\t'
	})
	max := MaxTokensPerStage * MaxStages
	if len(tokens) > max {
		tokens = tokens[:max]
	}
	return tokens
}

// ParsePipeline splits tokens into stages at each literal "|" token. The
// "|" tokens themselves are not included in any stage's argv. Returns at
// most MaxStages stages, each with at most MaxTokensPerStage argv tokens.
func ParsePipeline(tokens []string) []Stage {
	if len(tokens) == 0 {
		return nil
	}

	var stages []Stage
	var current []string

	flush := func() {
		if len(current) > MaxTokensPerStage {
			current = current[:MaxTokensPerStage]
		}
		stages = append(stages, Stage{Argv: current})
		current = nil
	}

	for _, tok := range tokens {
		if tok == "|" {
			flush()
			if len(stages) >= MaxStages {
				return stages
			}
			continue
		}
		current = append(current, tok)
	}
	flush()

	if len(stages) > MaxStages {
		stages = stages[:MaxStages]
	}
	return stages
}
