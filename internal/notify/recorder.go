package notify

import (
	"context"
	"sync"
)

// Recorder is an in-memory Dispatcher for tests.
type Recorder struct {
	mu     sync.Mutex
	Texts  []RecordedText
	Photos []RecordedPhoto
	Groups []RecordedGroup
	Edits  []MessageHandle

	// Fail makes every send return this error.
	Fail error
}

type RecordedText struct {
	To   int64
	Text string
	Menu *Menu
}

type RecordedPhoto struct {
	To    int64
	Photo Photo
	Menu  *Menu
}

type RecordedGroup struct {
	To     int64
	Photos []Photo
}

func (r *Recorder) SendText(_ context.Context, id int64, text string, menu *Menu) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail != nil {
		return r.Fail
	}
	r.Texts = append(r.Texts, RecordedText{To: id, Text: text, Menu: menu})
	return nil
}

func (r *Recorder) SendPhoto(_ context.Context, id int64, photo Photo, menu *Menu) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail != nil {
		return r.Fail
	}
	r.Photos = append(r.Photos, RecordedPhoto{To: id, Photo: photo, Menu: menu})
	return nil
}

func (r *Recorder) SendPhotoGroup(_ context.Context, id int64, photos []Photo) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail != nil {
		return r.Fail
	}
	r.Groups = append(r.Groups, RecordedGroup{To: id, Photos: photos})
	return nil
}

func (r *Recorder) EditMenu(_ context.Context, handle MessageHandle, _ *Menu) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail != nil {
		return r.Fail
	}
	r.Edits = append(r.Edits, handle)
	return nil
}

// TextsTo returns every text sent to the identity, in order.
func (r *Recorder) TextsTo(id int64) []RecordedText {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []RecordedText
	for _, t := range r.Texts {
		if t.To == id {
			out = append(out, t)
		}
	}
	return out
}
