package domain

import "testing"

func TestNovelStateClone(t *testing.T) {
	orig := &NovelState{
		ID: "n1",
		Characters: []Character{{
			ID: "c1", Name: "Lin Feng", Status: StatusAlive,
			Skills:        []string{"sword"},
			Relationships: []Relationship{{CharacterID: "c2", Type: "rival"}},
		}},
		Items:    []Item{{ID: "i1", Name: "Jade Sword"}},
		Chapters: []Chapter{{ID: "ch1", Number: 1}},
	}

	cp := orig.Clone()
	cp.Character("c1").Status = StatusDeceased
	cp.Character("c1").Skills[0] = "spear"
	cp.Character("c1").Relationships[0].Type = "friend"
	cp.Items[0].Name = "Broken Sword"
	cp.PutChapter(Chapter{ID: "ch2", Number: 2})

	c := orig.Character("c1")
	if c.Status != StatusAlive {
		t.Errorf("status leaked into original: %q", c.Status)
	}
	if c.Skills[0] != "sword" {
		t.Errorf("skills leaked into original: %v", c.Skills)
	}
	if c.Relationships[0].Type != "rival" {
		t.Errorf("relationship leaked into original: %q", c.Relationships[0].Type)
	}
	if orig.Items[0].Name != "Jade Sword" {
		t.Errorf("item leaked into original: %q", orig.Items[0].Name)
	}
	if len(orig.Chapters) != 1 {
		t.Errorf("original chapters = %d, want 1", len(orig.Chapters))
	}
}

func TestPutChapter(t *testing.T) {
	n := &NovelState{Chapters: []Chapter{{ID: "ch1", Number: 1, Content: "old"}}}

	n.PutChapter(Chapter{ID: "ch1b", Number: 1, Content: "new"})
	if len(n.Chapters) != 1 || n.Chapters[0].Content != "new" {
		t.Fatalf("same number should replace, got %+v", n.Chapters)
	}

	n.PutChapter(Chapter{ID: "ch2", Number: 2})
	if got := n.LatestChapter(); got == nil || got.Number != 2 {
		t.Fatalf("latest chapter = %+v, want 2", got)
	}
}
