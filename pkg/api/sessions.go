package api

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/james-see/chartwright/pkg/clipboard"
	"github.com/james-see/chartwright/pkg/converter"
	"github.com/james-see/chartwright/pkg/editor"
	"github.com/james-see/chartwright/pkg/score"
)

var (
	// ErrSessionNotFound is returned for an unknown session ID
	ErrSessionNotFound = errors.New("session not found")
	// ErrTooManySessions is returned when the session limit is reached
	ErrTooManySessions = errors.New("too many sessions")
	// ErrUnknownOperation is returned for an edit operation that does not exist
	ErrUnknownOperation = errors.New("unknown edit operation")
	// ErrInvalidValue is returned for an edit parameter that cannot be parsed
	ErrInvalidValue = errors.New("invalid value")
)

// Session is one editing context. Its lock serializes requests against it.
type Session struct {
	ID      string
	Created time.Time

	mu  sync.Mutex
	ctx *editor.Context
}

// SessionStore holds the open sessions. Sessions share one clipboard so
// notes copied in one session can be pasted into another.
type SessionStore struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	clipboard   *clipboard.Memory
	maxSessions int
	maxHistory  int
}

// NewSessionStore creates a store holding at most maxSessions sessions
func NewSessionStore(maxSessions, maxHistory int) *SessionStore {
	return &SessionStore{
		sessions:    make(map[string]*Session),
		clipboard:   clipboard.NewMemory(),
		maxSessions: maxSessions,
		maxHistory:  maxHistory,
	}
}

// Create opens a session on sc
func (st *SessionStore) Create(sc *score.Score, filename string) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.maxSessions > 0 && len(st.sessions) >= st.maxSessions {
		return nil, ErrTooManySessions
	}

	ctx := editor.New(editor.Options{Clipboard: st.clipboard, MaxHistory: st.maxHistory})
	ctx.Load(sc, filename)

	s := &Session{ID: uuid.NewString(), Created: time.Now(), ctx: ctx}
	st.sessions[s.ID] = s
	return s, nil
}

// Get returns the session with id
func (st *SessionStore) Get(id string) (*Session, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	s, ok := st.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Delete closes the session with id
func (st *SessionStore) Delete(id string) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if _, ok := st.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(st.sessions, id)
	return nil
}

// Len returns the number of open sessions
func (st *SessionStore) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// SessionSummary describes a session's state
type SessionSummary struct {
	ID        string      `json:"id"`
	Title     string      `json:"title"`
	Dirty     bool        `json:"dirty"`
	Pasting   bool        `json:"pasting"`
	Selection []int       `json:"selection"`
	Stats     score.Stats `json:"stats"`
	CanUndo   bool        `json:"canUndo"`
	CanRedo   bool        `json:"canRedo"`
	Warnings  []string    `json:"warnings,omitempty"`
}

// summary must be called with the session locked
func (s *Session) summary() SessionSummary {
	return SessionSummary{
		ID:        s.ID,
		Title:     s.ctx.Title(),
		Dirty:     s.ctx.Dirty(),
		Pasting:   s.ctx.IsPasting(),
		Selection: s.ctx.Selection(),
		Stats:     s.ctx.Stats(),
		CanUndo:   s.ctx.History().HasUndo(),
		CanRedo:   s.ctx.History().HasRedo(),
	}
}

// withSession runs fn with the session named in the path locked
func (s *Server) withSession(c *gin.Context, fn func(sess *Session)) {
	sess, err := s.sessions.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	fn(sess)
}

// createSession godoc
// @Summary Open an editing session
// @Description Upload an optional .sus chart or score document; without a file the session starts empty
// @Tags sessions
// @Accept multipart/form-data
// @Produce json
// @Param file formData file false "Chart to edit"
// @Success 201 {object} SessionSummary
// @Failure 422 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /sessions [post]
func (s *Server) createSession(c *gin.Context) {
	sc := score.New()
	var warnings []string

	var data []byte
	var filename string
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		var ok bool
		if data, filename, ok = s.readUpload(c, false); !ok {
			return
		}
	}
	if data != nil {
		conv := s.newConverter()
		loaded, err := conv.Decode(data, uploadFormat(filename, data))
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		sc, warnings = loaded, conv.Warnings()
	}

	sess, err := s.sessions.Create(sc, filename)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	summary := sess.summary()
	summary.Warnings = warnings
	c.JSON(http.StatusCreated, summary)
}

// getSession godoc
// @Summary Describe an editing session
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} SessionSummary
// @Failure 404 {object} map[string]string
// @Router /sessions/{id} [get]
func (s *Server) getSession(c *gin.Context) {
	s.withSession(c, func(sess *Session) {
		c.JSON(http.StatusOK, sess.summary())
	})
}

// deleteSession godoc
// @Summary Close an editing session
// @Tags sessions
// @Param id path string true "Session ID"
// @Success 204
// @Failure 404 {object} map[string]string
// @Router /sessions/{id} [delete]
func (s *Server) deleteSession(c *gin.Context) {
	if err := s.sessions.Delete(c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// getSessionScore godoc
// @Summary Get the session's score document
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} converter.Document
// @Failure 404 {object} map[string]string
// @Router /sessions/{id}/score [get]
func (s *Server) getSessionScore(c *gin.Context) {
	s.withSession(c, func(sess *Session) {
		data, err := converter.EncodeScore(sess.ctx.Score())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Data(http.StatusOK, "application/json", data)
	})
}

// getSessionHistory godoc
// @Summary List the session's history entries
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Router /sessions/{id}/history [get]
func (s *Server) getSessionHistory(c *gin.Context) {
	s.withSession(c, func(sess *Session) {
		c.JSON(http.StatusOK, gin.H{"entries": sess.ctx.History().Entries()})
	})
}

// exportSession godoc
// @Summary Export the session's score
// @Tags sessions
// @Produce application/octet-stream
// @Param id path string true "Session ID"
// @Param format query string false "sus, json or midi (default: sus)"
// @Success 200 {file} binary
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Router /sessions/{id}/export [get]
func (s *Server) exportSession(c *gin.Context) {
	format := converter.Format(strings.ToLower(c.DefaultQuery("format", string(converter.FormatSUS))))
	switch format {
	case converter.FormatSUS, converter.FormatJSON, converter.FormatMIDI:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unsupported format %q", format)})
		return
	}

	s.withSession(c, func(sess *Session) {
		conv := s.newConverter()
		data, err := conv.Encode(sess.ctx.Score(), format)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", outputName(strings.TrimSuffix(sess.ctx.Title(), "*"), format)))
		c.Header("X-Conversion-Warnings", fmt.Sprint(len(conv.Warnings())))
		c.Data(http.StatusOK, contentType(format), data)
	})
}

// selectionRequest replaces or extends the selection
type selectionRequest struct {
	IDs []int `json:"ids"`
	All bool  `json:"all"`
	Add bool  `json:"add"`
}

// setSelection godoc
// @Summary Set the session's selection
// @Description Replace the selection with ids, extend it when add is set, or select every note with all
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body selectionRequest true "Selection"
// @Success 200 {object} SessionSummary
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /sessions/{id}/selection [put]
func (s *Server) setSelection(c *gin.Context) {
	var req selectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.withSession(c, func(sess *Session) {
		if !req.Add {
			sess.ctx.ClearSelection()
		}
		if req.All {
			sess.ctx.SelectAll()
		} else {
			sess.ctx.Select(req.IDs...)
		}
		c.JSON(http.StatusOK, sess.summary())
	})
}

// noteRequest describes a tap or damage note to insert
type noteRequest struct {
	Type     string `json:"type"`
	Tick     int    `json:"tick" binding:"min=0"`
	Lane     int    `json:"lane" binding:"min=0"`
	Width    int    `json:"width"`
	Critical bool   `json:"critical"`
	Trace    bool   `json:"trace"`
	Flick    string `json:"flick"`
}

// insertNote godoc
// @Summary Insert a tap or damage note
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body noteRequest true "Note"
// @Success 201 {object} score.Note
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /sessions/{id}/notes [post]
func (s *Server) insertNote(c *gin.Context) {
	var req noteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	n := score.NewNote(score.NoteTap)
	switch strings.ToLower(req.Type) {
	case "", "tap":
	case "damage":
		n.Type = score.NoteDamage
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("%v: note type %q", ErrInvalidValue, req.Type)})
		return
	}
	n.Tick, n.Lane, n.Critical, n.Trace = req.Tick, req.Lane, req.Critical, req.Trace
	if req.Width > 0 {
		n.Width = req.Width
	}
	if req.Flick != "" {
		f, ok := score.ParseFlickType(strings.ToLower(req.Flick))
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("%v: flick %q", ErrInvalidValue, req.Flick)})
			return
		}
		n.Flick = f
	}

	s.withSession(c, func(sess *Session) {
		added, err := sess.ctx.InsertNote(n)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, added)
	})
}

// holdPointRequest is one point of a hold to insert
type holdPointRequest struct {
	Tick  int    `json:"tick" binding:"min=0"`
	Lane  int    `json:"lane" binding:"min=0"`
	Width int    `json:"width"`
	Step  string `json:"step"`
	Ease  string `json:"ease"`
	Flick string `json:"flick"`
}

// holdRequest describes a hold to insert
type holdRequest struct {
	Critical bool               `json:"critical"`
	Points   []holdPointRequest `json:"points" binding:"required,min=2,dive"`
}

// insertHold godoc
// @Summary Insert a hold
// @Description The first point is the start, the last the end and the rest are steps
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body holdRequest true "Hold"
// @Success 201 {object} score.HoldNote
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /sessions/{id}/holds [post]
func (s *Server) insertHold(c *gin.Context) {
	var req holdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	points := make([]score.HoldPoint, len(req.Points))
	for i, p := range req.Points {
		hp := score.HoldPoint{Tick: p.Tick, Lane: p.Lane, Width: p.Width}
		if hp.Width < 1 {
			hp.Width = 3
		}
		var err error
		if hp.Step, err = parseStep(p.Step, false); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if hp.Ease, err = parseEase(p.Ease, false); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if hp.Flick, err = parseFlick(p.Flick, false); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		points[i] = hp
	}

	s.withSession(c, func(sess *Session) {
		hold, err := sess.ctx.InsertHold(req.Critical, points...)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, hold)
	})
}

// editRequest carries the parameters of an edit operation
type editRequest struct {
	Value     string `json:"value"`
	Direction string `json:"direction"`
	Flip      bool   `json:"flip"`
	Lane      int    `json:"lane"`
	Tick      int    `json:"tick"`
}

// editResponse reports the outcome of an edit operation
type editResponse struct {
	Changed bool           `json:"changed"`
	Session SessionSummary `json:"session"`
}

// editSession godoc
// @Summary Apply an edit operation
// @Description Operations: step, ease, flick (value or "cycle"), critical, delete, flip, shrink (direction up or down), copy, cut, paste (flip), confirm (lane, tick), cancel, undo, redo
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param op path string true "Operation"
// @Param request body editRequest false "Parameters"
// @Success 200 {object} editResponse
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /sessions/{id}/edit/{op} [post]
func (s *Server) editSession(c *gin.Context) {
	var req editRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	s.withSession(c, func(sess *Session) {
		changed, err := applyEdit(sess.ctx, c.Param("op"), req)
		switch {
		case errors.Is(err, ErrUnknownOperation):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "operations": editOperations()})
		case err != nil:
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusOK, editResponse{Changed: changed, Session: sess.summary()})
		}
	})
}

// editOps maps operation names onto the editing context
var editOps = map[string]func(ctx *editor.Context, req editRequest) (bool, error){
	"step": func(ctx *editor.Context, req editRequest) (bool, error) {
		v, err := parseStep(req.Value, true)
		if err != nil {
			return false, err
		}
		return ctx.SetStep(v), nil
	},
	"ease": func(ctx *editor.Context, req editRequest) (bool, error) {
		v, err := parseEase(req.Value, true)
		if err != nil {
			return false, err
		}
		return ctx.SetEase(v), nil
	},
	"flick": func(ctx *editor.Context, req editRequest) (bool, error) {
		v, err := parseFlick(req.Value, true)
		if err != nil {
			return false, err
		}
		return ctx.SetFlick(v), nil
	},
	"critical": func(ctx *editor.Context, _ editRequest) (bool, error) {
		return ctx.ToggleCritical(), nil
	},
	"delete": func(ctx *editor.Context, _ editRequest) (bool, error) {
		return ctx.DeleteSelection(), nil
	},
	"flip": func(ctx *editor.Context, _ editRequest) (bool, error) {
		return ctx.FlipSelection(), nil
	},
	"shrink": func(ctx *editor.Context, req editRequest) (bool, error) {
		switch strings.ToLower(req.Direction) {
		case "", "down":
			return ctx.ShrinkSelection(editor.Down), nil
		case "up":
			return ctx.ShrinkSelection(editor.Up), nil
		}
		return false, fmt.Errorf("%w: direction %q", ErrInvalidValue, req.Direction)
	},
	"copy": func(ctx *editor.Context, _ editRequest) (bool, error) {
		return false, ctx.CopySelection()
	},
	"cut": func(ctx *editor.Context, _ editRequest) (bool, error) {
		n := len(ctx.Score().Notes)
		err := ctx.CutSelection()
		return len(ctx.Score().Notes) != n, err
	},
	"paste": func(ctx *editor.Context, req editRequest) (bool, error) {
		return ctx.Paste(req.Flip)
	},
	"confirm": func(ctx *editor.Context, req editRequest) (bool, error) {
		return ctx.ConfirmPaste(req.Lane, req.Tick), nil
	},
	"cancel": func(ctx *editor.Context, _ editRequest) (bool, error) {
		pasting := ctx.IsPasting()
		ctx.CancelPaste()
		return pasting, nil
	},
	"undo": func(ctx *editor.Context, _ editRequest) (bool, error) {
		return ctx.Undo(), nil
	},
	"redo": func(ctx *editor.Context, _ editRequest) (bool, error) {
		return ctx.Redo(), nil
	},
}

func applyEdit(ctx *editor.Context, op string, req editRequest) (bool, error) {
	fn, ok := editOps[strings.ToLower(op)]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownOperation, op)
	}
	return fn(ctx, req)
}

func editOperations() []string {
	ops := make([]string, 0, len(editOps))
	for op := range editOps {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	return ops
}

// parseStep, parseEase and parseFlick accept canonical names; with cycle set,
// "cycle" or an empty value selects the cycling sentinel
func parseStep(v string, cycle bool) (score.StepType, error) {
	v = strings.ToLower(v)
	if cycle && (v == "" || v == "cycle") {
		return score.CycleStep, nil
	}
	if v == "" {
		return score.StepNormal, nil
	}
	st, ok := score.ParseStepType(v)
	if !ok {
		return 0, fmt.Errorf("%w: step type %q, want one of %s", ErrInvalidValue, v, strings.Join(score.StepTypeNames(), ", "))
	}
	return st, nil
}

func parseEase(v string, cycle bool) (score.EaseType, error) {
	v = strings.ToLower(v)
	if cycle && (v == "" || v == "cycle") {
		return score.CycleEase, nil
	}
	if v == "" {
		return score.EaseLinear, nil
	}
	e, ok := score.ParseEaseType(v)
	if !ok {
		return 0, fmt.Errorf("%w: ease %q, want one of %s", ErrInvalidValue, v, strings.Join(score.EaseTypeNames(), ", "))
	}
	return e, nil
}

func parseFlick(v string, cycle bool) (score.FlickType, error) {
	v = strings.ToLower(v)
	if cycle && (v == "" || v == "cycle") {
		return score.CycleFlick, nil
	}
	if v == "" {
		return score.FlickNone, nil
	}
	f, ok := score.ParseFlickType(v)
	if !ok {
		return 0, fmt.Errorf("%w: flick %q, want one of %s", ErrInvalidValue, v, strings.Join(score.FlickTypeNames(), ", "))
	}
	return f, nil
}
