// Package coordinator drives a session through the generation stages. Each
// stage coordinator loads the session, records the stage start, invokes its
// worker, and either records the completed artifact or routes the failure
// through the session manager's retry policy. Coordinators return a Result
// instead of an error so a failed stage never propagates as a crash.
package coordinator

import (
	"context"
	"fmt"
	"log"

	"video-gen-pipeline/session"
	"video-gen-pipeline/types"
)

// ResearchWorker gathers factual grounding for a request.
type ResearchWorker interface {
	Research(ctx context.Context, req types.GenerationRequest) (*types.ResearchData, error)
}

// ScriptWorker turns a request and its research into a scene-by-scene script.
type ScriptWorker interface {
	WriteScript(ctx context.Context, req types.GenerationRequest, research *types.ResearchData) (*types.Script, error)
}

// AssetWorker sources visual assets for a script.
type AssetWorker interface {
	SourceAssets(ctx context.Context, script *types.Script) (*types.AssetCollection, error)
}

// AudioWorker narrates a script into per-scene audio segments.
type AudioWorker interface {
	GenerateAudio(ctx context.Context, script *types.Script) (*types.AudioAssets, error)
}

// AssemblyInput carries everything the assembly stage consumes.
type AssemblyInput struct {
	SessionID string
	Request   types.GenerationRequest
	Script    *types.Script
	Audio     *types.AudioAssets
	Assets    *types.AssetCollection
}

// Assembler synchronizes, composes, and encodes the final video.
type Assembler interface {
	Assemble(ctx context.Context, in AssemblyInput) (*types.FinalVideo, error)
}

// Result is the outcome of one coordinated stage.
type Result struct {
	Success      bool   `json:"success"`
	SessionID    string `json:"session_id"`
	Stage        string `json:"stage"`
	Attempts     int    `json:"attempts,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

type ResearchResult struct {
	Result
	Research *types.ResearchData `json:"research,omitempty"`
}

type ScriptResult struct {
	Result
	Script *types.Script `json:"script,omitempty"`
}

type AssetsResult struct {
	Result
	Assets *types.AssetCollection `json:"assets,omitempty"`
}

type AudioResult struct {
	Result
	Audio *types.AudioAssets `json:"audio,omitempty"`
}

type AssemblyResult struct {
	Result
	Video *types.FinalVideo `json:"video,omitempty"`
}

type Coordinator struct {
	sessions  *session.Manager
	research  ResearchWorker
	scripts   ScriptWorker
	assets    AssetWorker
	audio     AudioWorker
	assembler Assembler
}

func New(sessions *session.Manager, research ResearchWorker, scripts ScriptWorker, assets AssetWorker, audio AudioWorker, assembler Assembler) *Coordinator {
	return &Coordinator{
		sessions:  sessions,
		research:  research,
		scripts:   scripts,
		assets:    assets,
		audio:     audio,
		assembler: assembler,
	}
}

// Run drives one session through every stage in order, stopping at the first
// stage that fails.
func (c *Coordinator) Run(ctx context.Context, sessionID string) Result {
	log.Printf("[coordinator] ========== Running session %s ==========", sessionID)
	if r := c.RunResearch(ctx, sessionID); !r.Success {
		return r.Result
	}
	if r := c.RunScript(ctx, sessionID); !r.Success {
		return r.Result
	}
	if r := c.RunAssets(ctx, sessionID); !r.Success {
		return r.Result
	}
	if r := c.RunAudio(ctx, sessionID); !r.Success {
		return r.Result
	}
	return c.RunAssembly(ctx, sessionID).Result
}

// RunResearch coordinates the research stage.
func (c *Coordinator) RunResearch(ctx context.Context, sessionID string) ResearchResult {
	res, final := c.runStage(ctx, sessionID, session.StageResearching, func(ctx context.Context, s *session.Session) (session.Update, error) {
		data, err := c.research.Research(ctx, s.Request)
		if err != nil {
			return session.Update{}, err
		}
		return session.Update{Research: data}, nil
	})

	out := ResearchResult{Result: res}
	if final != nil {
		out.Research = final.Research
	}
	return out
}

// RunScript coordinates the scripting stage. Research must have completed.
func (c *Coordinator) RunScript(ctx context.Context, sessionID string) ScriptResult {
	res, final := c.runStage(ctx, sessionID, session.StageScripting, func(ctx context.Context, s *session.Session) (session.Update, error) {
		if s.Research == nil {
			return session.Update{}, &types.ValidationError{Field: "research", Reason: "research artifact is required before scripting"}
		}
		script, err := c.scripts.WriteScript(ctx, s.Request, s.Research)
		if err != nil {
			return session.Update{}, err
		}
		if err := script.Validate(); err != nil {
			return session.Update{}, err
		}
		return session.Update{Script: script}, nil
	})

	out := ScriptResult{Result: res}
	if final != nil {
		out.Script = final.Script
	}
	return out
}

// RunAssets coordinates asset sourcing. Scripting must have completed.
func (c *Coordinator) RunAssets(ctx context.Context, sessionID string) AssetsResult {
	res, final := c.runStage(ctx, sessionID, session.StageAssetSourcing, func(ctx context.Context, s *session.Session) (session.Update, error) {
		if s.Script == nil {
			return session.Update{}, &types.ValidationError{Field: "script", Reason: "script artifact is required before asset sourcing"}
		}
		col, err := c.assets.SourceAssets(ctx, s.Script)
		if err != nil {
			return session.Update{}, err
		}
		return session.Update{Assets: col, Files: localPaths(col)}, nil
	})

	out := AssetsResult{Result: res}
	if final != nil {
		out.Assets = final.Assets
	}
	return out
}

// RunAudio coordinates narration. Scripting must have completed.
func (c *Coordinator) RunAudio(ctx context.Context, sessionID string) AudioResult {
	res, final := c.runStage(ctx, sessionID, session.StageAudioGeneration, func(ctx context.Context, s *session.Session) (session.Update, error) {
		if s.Script == nil {
			return session.Update{}, &types.ValidationError{Field: "script", Reason: "script artifact is required before audio generation"}
		}
		audio, err := c.audio.GenerateAudio(ctx, s.Script)
		if err != nil {
			return session.Update{}, err
		}
		return session.Update{Audio: audio, Files: audioFiles(audio)}, nil
	})

	out := AudioResult{Result: res}
	if final != nil {
		out.Audio = final.Audio
	}
	return out
}

// RunAssembly coordinates the final assembly stage. On success the session
// transitions straight to completed.
func (c *Coordinator) RunAssembly(ctx context.Context, sessionID string) AssemblyResult {
	res, final := c.runStage(ctx, sessionID, session.StageVideoAssembly, func(ctx context.Context, s *session.Session) (session.Update, error) {
		if s.Script == nil || s.Audio == nil {
			return session.Update{}, &types.ValidationError{Field: "session", Reason: "script and audio artifacts are required for assembly"}
		}
		video, err := c.assembler.Assemble(ctx, AssemblyInput{
			SessionID: s.ID,
			Request:   s.Request,
			Script:    s.Script,
			Audio:     s.Audio,
			Assets:    s.Assets,
		})
		if err != nil {
			return session.Update{}, err
		}
		return session.Update{FinalVideo: video}, nil
	})

	out := AssemblyResult{Result: res}
	if final != nil {
		out.Video = final.FinalVideo
	}
	return out
}

// runStage is the shared stage loop: record the start checkpoint, invoke the
// worker, retry processing failures through the session manager until it
// declares the ceiling reached. Validation failures and cancellation abort
// the session immediately.
func (c *Coordinator) runStage(ctx context.Context, sessionID string, stage session.Stage, work func(context.Context, *session.Session) (session.Update, error)) (Result, *session.Session) {
	res := Result{SessionID: sessionID, Stage: string(stage)}

	s, err := c.sessions.GetSession(ctx, sessionID)
	if err != nil {
		res.ErrorMessage = err.Error()
		return res, nil
	}
	if s.Cancelled {
		res.ErrorMessage = c.abortCancelled(ctx, sessionID)
		return res, nil
	}

	start := session.Update{Stage: stage, Progress: session.StartProgress(stage)}
	if err := c.sessions.Advance(ctx, sessionID, start); err != nil {
		res.ErrorMessage = err.Error()
		return res, nil
	}
	log.Printf("[coordinator] Stage %s started for session %s", stage, sessionID)

	for {
		res.Attempts++
		u, workErr := work(ctx, s)
		if workErr == nil {
			u.Stage = stage
			u.Progress = session.DoneProgress(stage)
			u.ClearRetries = stage
			if stage == session.StageVideoAssembly {
				// Assembly completion finishes the whole pipeline.
				u.Stage = session.StageCompleted
				u.Progress = 1.0
			}
			if err := c.sessions.Advance(ctx, sessionID, u); err != nil {
				res.ErrorMessage = err.Error()
				return res, nil
			}
			log.Printf("[coordinator] ✅ Stage %s completed for session %s", stage, sessionID)
			res.Success = true

			final, err := c.sessions.GetSession(ctx, sessionID)
			if err != nil {
				return res, nil
			}
			return res, final
		}

		if ctx.Err() != nil {
			msg := "session cancelled"
			if ctx.Err() == context.DeadlineExceeded {
				msg = "pipeline deadline exceeded"
			}
			c.failSession(ctx, sessionID, msg)
			res.ErrorMessage = msg
			return res, nil
		}
		if !types.Retryable(workErr) {
			c.failSession(ctx, sessionID, workErr.Error())
			res.ErrorMessage = workErr.Error()
			return res, nil
		}

		retry, herr := c.sessions.HandleStageError(ctx, sessionID, stage, workErr)
		if herr != nil {
			res.ErrorMessage = herr.Error()
			return res, nil
		}
		if !retry {
			res.ErrorMessage = fmt.Sprintf("Max retries exceeded for %s", stage)
			return res, nil
		}

		s, err = c.sessions.GetSession(ctx, sessionID)
		if err != nil {
			res.ErrorMessage = err.Error()
			return res, nil
		}
		if s.Cancelled {
			res.ErrorMessage = c.abortCancelled(ctx, sessionID)
			return res, nil
		}
	}
}

func (c *Coordinator) abortCancelled(ctx context.Context, sessionID string) string {
	const msg = "session cancelled"
	log.Printf("[coordinator] Session %s cancelled, aborting", sessionID)
	c.failSession(ctx, sessionID, msg)
	return msg
}

// failSession records the terminal failed state. The write is detached from
// ctx so it still lands when the pipeline context itself was cancelled.
func (c *Coordinator) failSession(ctx context.Context, sessionID, msg string) {
	ctx = context.WithoutCancel(ctx)
	if err := c.sessions.Advance(ctx, sessionID, session.Update{Stage: session.StageFailed, ErrorMessage: msg}); err != nil {
		log.Printf("[coordinator] ⚠️ Failed to mark session %s as failed: %v", sessionID, err)
	}
}

func localPaths(col *types.AssetCollection) []string {
	if col == nil {
		return nil
	}
	var paths []string
	for _, item := range append(append([]types.AssetItem{}, col.VideoClips...), col.Images...) {
		if item.LocalPath != "" {
			paths = append(paths, item.LocalPath)
		}
	}
	return paths
}

func audioFiles(audio *types.AudioAssets) []string {
	if audio == nil {
		return nil
	}
	files := append([]string{}, audio.Files...)
	if audio.CombinedFile != "" {
		files = append(files, audio.CombinedFile)
	}
	return files
}
