package pipeline

import (
	"reflect"
	"testing"
)

func TestParseArgv(t *testing.T) {
	t.Run("splits on space and tab runs", func(t *testing.T) {
		got := ParseArgv("ls  -la\t/tmp")
		want := []string{"ls", "-la", "/tmp"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("ParseArgv() = %v, want %v", got, want)
		}
	})

	t.Run("ignores leading and trailing whitespace", func(t *testing.T) {
		got := ParseArgv("  echo hi  ")
		want := []string{"echo", "hi"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("ParseArgv() = %v, want %v", got, want)
		}
	})

	t.Run("empty line yields no tokens", func(t *testing.T) {
		got := ParseArgv("   ")
		if len(got) != 0 {
			t.Errorf("ParseArgv() = %v, want empty", got)
		}
	})
}

func TestParsePipeline(t *testing.T) {
	t.Run("single stage", func(t *testing.T) {
		stages := ParsePipeline(ParseArgv("wc -l"))
		if len(stages) != 1 {
			t.Fatalf("len(stages) = %d, want 1", len(stages))
		}
		if !reflect.DeepEqual(stages[0].Argv, []string{"wc", "-l"}) {
			t.Errorf("stage argv = %v", stages[0].Argv)
		}
	})

	t.Run("returns 1 plus count of pipe tokens", func(t *testing.T) {
		for _, tc := range []struct {
			line  string
			count int
		}{
			{"cat file.txt", 1},
			{"cat file.txt | grep foo", 2},
			{"cat file.txt | grep foo | sort | uniq -c", 4},
		} {
			stages := ParsePipeline(ParseArgv(tc.line))
			if len(stages) != tc.count {
				t.Errorf("ParsePipeline(%q) = %d stages, want %d", tc.line, len(stages), tc.count)
			}
		}
	})

	t.Run("pipe tokens are not included in any stage argv", func(t *testing.T) {
		stages := ParsePipeline(ParseArgv("cat file | grep foo"))
		for _, s := range stages {
			for _, tok := range s.Argv {
				if tok == "|" {
					t.Errorf("stage argv %v contains a literal pipe token", s.Argv)
				}
			}
		}
	})

	t.Run("empty line yields no stages", func(t *testing.T) {
		stages := ParsePipeline(ParseArgv(""))
		if len(stages) != 0 {
			t.Errorf("ParsePipeline(empty) = %d stages, want 0", len(stages))
		}
	})

	t.Run("a double-bar token is not a stage separator", func(t *testing.T) {
		stages := ParsePipeline(ParseArgv("cat file || grep foo"))
		// "||" is not split specially; it is a single non-delimiter token
		// since the tokenizer only recognizes a standalone "|" token.
		if len(stages) != 1 {
			t.Fatalf("len(stages) = %d, want 1 for a literal '||' token", len(stages))
		}
	})
}
