package inmemdb

import (
	"context"
	"sort"

	"github.com/textmine/backend/core/text"
)

type textRepository struct {
	db *DB
}

var _ text.Repository = (*textRepository)(nil) // interface compliance check

func NewTextRepository(db *DB) *textRepository {
	return &textRepository{db: db}
}

func copyText(t *text.Text) text.Text {
	c := *t
	if t.TaskID != nil {
		c.TaskID = strPtr(*t.TaskID)
	}
	if t.ClassroomID != nil {
		c.ClassroomID = strPtr(*t.ClassroomID)
	}
	return c
}

func (repo *textRepository) CreateText(_ context.Context, t text.Text) (text.Text, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if t.TaskID != nil {
		for _, other := range repo.db.texts {
			if other.CreatorID == t.CreatorID && other.TaskID != nil && *other.TaskID == *t.TaskID {
				return text.Text{}, text.ErrAlreadySubmitted
			}
		}
	}
	t.ID = repo.db.newID()
	stored := copyText(&t)
	repo.db.texts[t.ID] = &stored
	return copyText(&stored), nil
}

func (repo *textRepository) GetTextByID(_ context.Context, id string) (text.Text, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if t, ok := repo.db.texts[id]; ok {
		return copyText(t), nil
	}
	return text.Text{}, text.ErrNotFound
}

func (repo *textRepository) GetTextByCreatorAndTask(_ context.Context, creatorID, taskID string) (text.Text, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, t := range repo.db.texts {
		if t.CreatorID == creatorID && t.TaskID != nil && *t.TaskID == taskID {
			return copyText(t), nil
		}
	}
	return text.Text{}, text.ErrNotFound
}

func (repo *textRepository) sortNewest(texts []text.Text) {
	sort.Slice(texts, func(i, j int) bool {
		a, b := texts[i], texts[j]
		return repo.db.newer(a.ID, a.CreatedAt, b.ID, b.CreatedAt)
	})
}

func (repo *textRepository) QueryTexts(_ context.Context, filter *text.QueryFilter) ([]text.Text, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	texts := make([]text.Text, 0)
	for _, t := range repo.db.texts {
		if filter != nil {
			if filter.CreatorID != "" && t.CreatorID != filter.CreatorID {
				continue
			}
			if filter.ClassroomID != "" && !t.InClassroom(filter.ClassroomID) {
				continue
			}
			if filter.TaskID != "" && (t.TaskID == nil || *t.TaskID != filter.TaskID) {
				continue
			}
		}
		texts = append(texts, copyText(t))
	}
	repo.sortNewest(texts)
	return texts, nil
}

func (repo *textRepository) moderationOf(textID string) *text.ModeratedText {
	for _, m := range repo.db.moderated {
		if m.OriginalID == textID {
			c := *m
			return &c
		}
	}
	return nil
}

func (repo *textRepository) QueryPendingTexts(_ context.Context, classroomID string) ([]text.Text, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	texts := make([]text.Text, 0)
	for _, t := range repo.db.texts {
		if t.InClassroom(classroomID) && repo.moderationOf(t.ID) == nil {
			texts = append(texts, copyText(t))
		}
	}
	// oldest first
	sort.Slice(texts, func(i, j int) bool {
		a, b := texts[i], texts[j]
		return repo.db.newer(b.ID, b.CreatedAt, a.ID, a.CreatedAt)
	})
	return texts, nil
}

func (repo *textRepository) QueryResults(_ context.Context, creatorID, classroomID string) ([]text.Result, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	texts := make([]text.Text, 0)
	for _, t := range repo.db.texts {
		if t.CreatorID == creatorID && t.InClassroom(classroomID) {
			texts = append(texts, copyText(t))
		}
	}
	repo.sortNewest(texts)

	results := make([]text.Result, 0, len(texts))
	for _, t := range texts {
		results = append(results, text.Result{Text: t, Moderated: repo.moderationOf(t.ID)})
	}
	return results, nil
}

func (repo *textRepository) CreateModeratedText(_ context.Context, m text.ModeratedText) (text.ModeratedText, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.texts[m.OriginalID]; !ok {
		return text.ModeratedText{}, text.ErrNotFound
	}
	if repo.moderationOf(m.OriginalID) != nil {
		return text.ModeratedText{}, text.ErrAlreadyModerated
	}
	m.ID = repo.db.newID()
	stored := m
	repo.db.moderated[m.ID] = &stored
	return m, nil
}

func (repo *textRepository) GetModeratedTextByID(_ context.Context, id string) (text.ModeratedText, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if m, ok := repo.db.moderated[id]; ok {
		return *m, nil
	}
	return text.ModeratedText{}, text.ErrModeratedNotFound
}

func (repo *textRepository) GetModeratedTextByOriginal(_ context.Context, originalID string) (text.ModeratedText, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if m := repo.moderationOf(originalID); m != nil {
		return *m, nil
	}
	return text.ModeratedText{}, text.ErrModeratedNotFound
}

func (repo *textRepository) QueryModeratedTexts(_ context.Context, classroomID string) ([]text.ModeratedText, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	mods := make([]text.ModeratedText, 0)
	for _, m := range repo.db.moderated {
		if classroomID != "" {
			orig, ok := repo.db.texts[m.OriginalID]
			if !ok || !orig.InClassroom(classroomID) {
				continue
			}
		}
		mods = append(mods, *m)
	}
	sort.Slice(mods, func(i, j int) bool {
		a, b := mods[i], mods[j]
		return repo.db.newer(a.ID, a.CreatedAt, b.ID, b.CreatedAt)
	})
	return mods, nil
}
