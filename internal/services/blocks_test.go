package services

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	types "github.com/yungbote/routineflow-backend/internal/domain"
)

func TestValidTime(t *testing.T) {
	valid := []string{"0:00", "7:05", "07:05", "19:59", "23:59"}
	invalid := []string{"24:00", "7:5", "07:60", "ab:cd", "", "7h30", "-1:00", "123:00"}
	for _, s := range valid {
		if !ValidTime(s) {
			t.Fatalf("ValidTime(%q): want=true", s)
		}
	}
	for _, s := range invalid {
		if ValidTime(s) {
			t.Fatalf("ValidTime(%q): want=false", s)
		}
	}
	if got, _ := NormalizeTime("7:05"); got != "07:05" {
		t.Fatalf("NormalizeTime: want=07:05 got=%s", got)
	}
}

func TestParseBlocksTakesOuterObject(t *testing.T) {
	text := "Claro! Aqui está:\n```json\n{\"blocks\":[{\"day_of_week\":1,\"block_type\":\"focus\",\"title\":\"Estudo\",\"start_time\":\"08:00\",\"end_time\":\"09:30\"}]}\n```"
	drafts, err := ParseBlocks(text)
	if err != nil {
		t.Fatalf("ParseBlocks: %v", err)
	}
	if len(drafts) != 1 || drafts[0].Title != "Estudo" {
		t.Fatalf("drafts: got=%+v", drafts)
	}
}

func TestParseBlocksRejects(t *testing.T) {
	for _, text := range []string{"", "no json here", `{"blocks":[]}`, `{"blocks": [ {]}`} {
		if _, err := ParseBlocks(text); err == nil {
			t.Fatalf("ParseBlocks(%q): want error", text)
		}
	}
	if _, err := ParseBlocks(`{"blocks":[]}`); !errors.Is(err, ErrNoBlocks) {
		t.Fatalf("empty list: want ErrNoBlocks got=%v", err)
	}
}

func ptr(f float64) *float64 { return &f }

func TestValidateBlocksNormalizes(t *testing.T) {
	got, err := ValidateBlocks([]BlockDraft{
		{DayOfWeek: ptr(0), BlockType: "Focus", Title: " Leitura ", StartTime: "7:00", EndTime: "8:30"},
		{DayOfWeek: ptr(6), BlockType: "rest", Title: "Pausa", StartTime: "12:00", EndTime: "12:15", Priority: ptr(9)},
		{DayOfWeek: ptr(3), BlockType: "fixed", Title: "Trabalho", StartTime: "09:00", EndTime: "18:00", IsFixed: true, Priority: ptr(-2)},
	})
	if err != nil {
		t.Fatalf("ValidateBlocks: %v", err)
	}
	want := []*types.RoutineBlock{
		{DayOfWeek: 0, BlockType: types.BlockFocus, Title: "Leitura", StartTime: "07:00", EndTime: "08:30", Priority: 1},
		{DayOfWeek: 6, BlockType: types.BlockRest, Title: "Pausa", StartTime: "12:00", EndTime: "12:15", Priority: 5},
		{DayOfWeek: 3, BlockType: types.BlockFixed, Title: "Trabalho", StartTime: "09:00", EndTime: "18:00", IsFixed: true, Priority: 1},
	}
	if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(types.RoutineBlock{}, "ID", "RoutineID", "CreatedAt")); diff != "" {
		t.Fatalf("blocks (-want +got):\n%s", diff)
	}
}

func TestValidateBlocksRejectsWholeBatch(t *testing.T) {
	good := BlockDraft{DayOfWeek: ptr(1), BlockType: "focus", Title: "A", StartTime: "08:00", EndTime: "09:00"}
	cases := []struct {
		name  string
		bad   BlockDraft
		field string
	}{
		{"missing day", BlockDraft{BlockType: "focus", Title: "A", StartTime: "08:00", EndTime: "09:00"}, "day_of_week"},
		{"day out of range", BlockDraft{DayOfWeek: ptr(7), BlockType: "focus", Title: "A", StartTime: "08:00", EndTime: "09:00"}, "day_of_week"},
		{"fractional day", BlockDraft{DayOfWeek: ptr(1.5), BlockType: "focus", Title: "A", StartTime: "08:00", EndTime: "09:00"}, "day_of_week"},
		{"unknown type", BlockDraft{DayOfWeek: ptr(1), BlockType: "nap", Title: "A", StartTime: "08:00", EndTime: "09:00"}, "block_type"},
		{"blank title", BlockDraft{DayOfWeek: ptr(1), BlockType: "focus", Title: "  ", StartTime: "08:00", EndTime: "09:00"}, "title"},
		{"bad start", BlockDraft{DayOfWeek: ptr(1), BlockType: "focus", Title: "A", StartTime: "25:00", EndTime: "09:00"}, "start_time"},
		{"end equals start", BlockDraft{DayOfWeek: ptr(1), BlockType: "focus", Title: "A", StartTime: "09:00", EndTime: "09:00"}, "end_time"},
		{"end before start", BlockDraft{DayOfWeek: ptr(1), BlockType: "focus", Title: "A", StartTime: "22:00", EndTime: "01:00"}, "end_time"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := ValidateBlocks([]BlockDraft{good, tc.bad})
			if out != nil {
				t.Fatalf("partial output returned: %v", out)
			}
			var ve *BlockValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("want BlockValidationError got=%v", err)
			}
			if ve.Index != 1 || ve.Field != tc.field {
				t.Fatalf("error: want index=1 field=%s got index=%d field=%s", tc.field, ve.Index, ve.Field)
			}
		})
	}
}

func TestOutsideWindow(t *testing.T) {
	b := &types.RoutineBlock{StartTime: "06:00", EndTime: "07:00"}
	if !outsideWindow(b, "07:00", "23:00") {
		t.Fatalf("block before wake should be outside")
	}
	if outsideWindow(&types.RoutineBlock{StartTime: "08:00", EndTime: "09:00"}, "07:00", "23:00") {
		t.Fatalf("block inside window reported outside")
	}
	if outsideWindow(b, "23:00", "07:00") {
		t.Fatalf("overnight window should never report")
	}
}
