package bundler

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/skiff-dev/skiff/internal/bytecode"
	"github.com/skiff-dev/skiff/internal/config"
	"github.com/skiff-dev/skiff/internal/errors"
	"github.com/skiff-dev/skiff/internal/report"
)

var tracer = otel.Tracer("skiff/bundler")

// BytecodeCompiler compiles bundled source into the alternate
// bytecode format. The compiler does not support concurrent
// invocations; Bundle calls it strictly sequentially.
type BytecodeCompiler interface {
	Compile(ctx context.Context, code, sourceMap string, minify bool) (bytecode []byte, bytecodeMap string, err error)
}

// buildServer is the part of Server that Bundle drives.
type buildServer interface {
	Build(ctx context.Context, req Request, progress ProgressFunc) (*Output, error)
	Close() error
}

// Options configures a bundling invocation.
type Options struct {
	// Logger receives orchestration and bundler output.
	Logger zerolog.Logger

	// Reporter receives progress events. Nil means no reporting.
	Reporter *report.Reporter

	// Bytecode overrides the bytecode compiler. Nil means the
	// compiler named in skiff.json.
	Bytecode BytecodeCompiler
}

// Bundle produces one finished bundle artifact per request, in request
// order. Targets build in parallel; bytecode compilation then runs
// sequentially for each platform configured for the alternate runtime.
// The bundler server started for the batch is closed exactly once,
// success or failure. Any failure aborts the whole batch.
func Bundle(ctx context.Context, projectRoot string, app *config.AppConfig, opts Options, reqs []Request) ([]*Output, error) {
	cfg, err := config.Load(projectRoot)
	if err != nil {
		return nil, err
	}

	srv, err := StartServer(ctx, ConfigFromProject(cfg, false, opts.Logger))
	if err != nil {
		return nil, err
	}

	bc := opts.Bytecode
	if bc == nil {
		bc = bytecode.New(cfg.Bytecode.Command)
	}

	return bundleWith(ctx, cfg, app, srv, bc, opts, reqs)
}

// bundleWith runs the batch against an already-started server.
// Split out so the orchestration is testable without a subprocess.
func bundleWith(ctx context.Context, cfg *config.Config, app *config.AppConfig, srv buildServer, bc BytecodeCompiler, opts Options, reqs []Request) (outputs []*Output, err error) {
	defer func() {
		if cerr := srv.Close(); cerr != nil && err == nil {
			outputs = nil
			err = cerr
		}
	}()

	reporter := opts.Reporter
	if reporter == nil {
		reporter = report.New(true)
	}

	buildID := uuid.NewString()
	results := make([]*Output, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	for i, req := range reqs {
		g.Go(func() error {
			bctx, span := tracer.Start(gctx, "bundler.build")
			span.SetAttributes(
				attribute.String("skiff.build_id", buildID),
				attribute.String("skiff.platform", string(req.Platform)),
				attribute.Bool("skiff.dev", req.Dev),
				attribute.Bool("skiff.minify", req.MinifyEnabled()),
			)
			defer span.End()

			reporter.Emit(report.Event{
				Type:     report.TypeBuildStarted,
				BuildID:  buildID,
				Platform: string(req.Platform),
			})

			out, buildErr := srv.Build(bctx, req, func(transformed, total int) {
				reporter.Emit(report.Event{
					Type:                 report.TypeTransformProgressed,
					BuildID:              buildID,
					Platform:             string(req.Platform),
					TransformedFileCount: transformed,
					TotalFileCount:       total,
				})
			})
			if buildErr != nil {
				span.SetStatus(codes.Error, buildErr.Error())
				return buildErr
			}

			reporter.Emit(report.Event{
				Type:     report.TypeBuildDone,
				BuildID:  buildID,
				Platform: string(req.Platform),
			})

			results[i] = out
			return nil
		})
	}
	if werr := g.Wait(); werr != nil {
		return nil, werr
	}

	// Bytecode compilation is strictly ordered: the external compiler
	// rejects concurrent invocations, even across processes.
	for i, req := range reqs {
		if !cfg.BytecodeFor(string(req.Platform)) {
			continue
		}

		if cerr := checkEngineConsistency(cfg, app, req.Platform); cerr != nil {
			return nil, cerr
		}

		if bc == nil {
			return nil, errors.Newf(errors.CategoryBytecode,
				"platform %s requests bytecode but no compiler is configured", req.Platform)
		}

		cctx, span := tracer.Start(ctx, "bytecode.compile")
		span.SetAttributes(
			attribute.String("skiff.build_id", buildID),
			attribute.String("skiff.platform", string(req.Platform)),
		)
		code, srcMap, cerr := bc.Compile(cctx, results[i].Code, results[i].SourceMap, req.MinifyEnabled())
		if cerr != nil {
			span.SetStatus(codes.Error, cerr.Error())
			span.End()
			return nil, cerr
		}
		span.End()

		results[i].Bytecode = code
		results[i].BytecodeSourceMap = srcMap
	}

	return results, nil
}

// checkEngineConsistency verifies that a platform configured for the
// alternate runtime also declares the matching engine in app.json.
// The error names the manifest the developer must edit.
func checkEngineConsistency(cfg *config.Config, app *config.AppConfig, platform Platform) error {
	if app == nil {
		return errors.New("E202").
			WithDetail("skiff.json enables bytecode for " + string(platform) + " but no app manifest was provided")
	}

	engine := app.EngineFor(string(platform))
	if engine == config.EngineBytecode {
		return nil
	}

	manifest := app.Path()
	if manifest == "" {
		manifest = config.AppFileName
	}
	return errors.New("E202").
		WithDetail(manifest + " declares jsEngine " + engine + " for " + string(platform) +
			", but " + config.ConfigFileName + " enables bytecode for that platform").
		WithSuggestion(`Set "jsEngine": "` + config.EngineBytecode + `" in ` + manifest +
			" or disable bytecode for " + string(platform) + " in " + config.ConfigFileName)
}
