package plugin

import (
	"context"
	"strconv"

	"github.com/roach88/sqlbridge/internal/batch"
	"github.com/roach88/sqlbridge/internal/callargs"
	"github.com/roach88/sqlbridge/internal/session"
	"github.com/roach88/sqlbridge/internal/value"
)

// Argument keys.
const (
	keyPath           = "path"
	keyReadOnly       = "readOnly"
	keySingleInstance = "singleInstance"
	keyID             = "id"
	keyQueryAsMapList = "queryAsMapList"
	keyLogLevel       = "logLevel"
	keyCmd            = "cmd"
	keySQL            = "sql"
	keyArguments      = "arguments"
)

// Result keys.
const (
	keyRecovered              = "recovered"
	keyRecoveredInTransaction = "recoveredInTransaction"
	keyDatabases              = "databases"
)

const debugCmdGet = "get"

func (p *Plugin) handleGetPlatformVersion(_ context.Context, _ MethodCall) Reply {
	return Success(value.String(p.cfg.Platform))
}

func (p *Plugin) handleGetDatabasesPath(_ context.Context, _ MethodCall) Reply {
	dir := p.cfg.DatabasesDir
	if err := p.fs.MkdirAll(dir, 0o755); err != nil {
		p.logger.Warn("cannot create databases directory", "dir", dir, "error", err)
	}
	return Success(value.String(dir))
}

func (p *Plugin) handleOptions(_ context.Context, call MethodCall) Reply {
	args, err := callargs.Map(call.Arguments)
	if err != nil {
		return errorReply(err)
	}
	asMapList, err := callargs.OptionalFlag(args, keyQueryAsMapList)
	if err != nil {
		return errorReply(err)
	}
	var level *session.LogLevel
	if n, ok, err := callargs.Int(args, keyLogLevel); err != nil {
		return errorReply(err)
	} else if ok {
		l, err := session.ParseLogLevel(n)
		if err != nil {
			return errorReply(&callargs.Error{Key: keyLogLevel, Reason: err.Error()})
		}
		level = &l
	}

	// Only keys present are applied. sqflite resets queryAsMapList to false
	// when the key is missing; here a logLevel-only call leaves the result
	// shape alone.
	if asMapList != nil {
		p.options.SetQueryAsMapList(*asMapList)
	}
	if level != nil {
		p.options.SetLogLevel(*level)
	}
	p.logger.Info("options", "log_level", p.options.LogLevel(), "query_as_map_list", p.options.QueryAsMapList())
	return Success(nil)
}

func (p *Plugin) handleOpenDatabase(_ context.Context, call MethodCall) Reply {
	args, err := callargs.Map(call.Arguments)
	if err != nil {
		return errorReply(err)
	}
	path, err := callargs.RequiredString(args, keyPath)
	if err != nil {
		return errorReply(err)
	}
	readOnly, err := callargs.Flag(args, keyReadOnly)
	if err != nil {
		return errorReply(err)
	}
	single, err := callargs.Flag(args, keySingleInstance)
	if err != nil {
		return errorReply(err)
	}

	res, err := p.registry.Open(session.OpenRequest{
		Path:           p.resolvePath(path),
		ReadOnly:       readOnly,
		SingleInstance: single,
		LogLevel:       p.options.LogLevel(),
	})
	if err != nil {
		return errorReply(&OpenError{Path: path, Err: err})
	}

	entries := []value.Entry{value.E(keyID, idValue(res.Session.ID))}
	if res.Recovered {
		entries = append(entries, value.E(keyRecovered, value.Bool(true)))
		if res.Session.InTransaction {
			entries = append(entries, value.E(keyRecoveredInTransaction, value.Bool(true)))
		}
	}
	return Success(value.NewMap(entries...))
}

func (p *Plugin) handleCloseDatabase(_ context.Context, call MethodCall) Reply {
	args, err := callargs.Map(call.Arguments)
	if err != nil {
		return errorReply(err)
	}
	id, err := callargs.SessionID(args, keyID)
	if err != nil {
		return errorReply(err)
	}
	sess, err := p.registry.Close(id)
	if err != nil {
		return errorReply(err)
	}
	p.release(sess)
	return Success(nil)
}

// handleDeleteDatabase closes the single-instance session registered for the
// path and removes its file. A path with no open session is left untouched.
func (p *Plugin) handleDeleteDatabase(_ context.Context, call MethodCall) Reply {
	args, err := callargs.Map(call.Arguments)
	if err != nil {
		return errorReply(err)
	}
	path, err := callargs.RequiredString(args, keyPath)
	if err != nil {
		return errorReply(err)
	}
	sess, deleted, err := p.registry.Delete(p.resolvePath(path))
	if deleted {
		p.release(sess)
	}
	if err != nil {
		return errorReply(err)
	}
	return Success(nil)
}

func (p *Plugin) release(sess session.Session) {
	if !sess.InMemory() {
		return
	}
	if err := p.executor.Release(sess.ID); err != nil {
		p.logger.Warn("release in-memory database", "id", sess.ID, "error", err)
	}
}

// handleStatement serves execute, insert, update and query.
func (p *Plugin) handleStatement(ctx context.Context, call MethodCall) Reply {
	args, err := callargs.Map(call.Arguments)
	if err != nil {
		return errorReply(err)
	}
	id, err := callargs.SessionID(args, keyID)
	if err != nil {
		return errorReply(err)
	}
	op, err := batch.FromCallArgs(call.Method, args)
	if err != nil {
		return errorReply(err)
	}
	if err := p.processor.RunOne(ctx, id, op, p.options.Shape()); err != nil {
		reply := errorReply(err)
		if !session.IsNotFound(err) {
			reply.Details = value.NewMap(
				value.E(keySQL, value.String(op.SQL)),
				value.E(keyArguments, op.Arguments),
			)
		}
		return reply
	}
	return Success(op.Result)
}

func (p *Plugin) handleBatch(ctx context.Context, call MethodCall) Reply {
	args, err := callargs.Map(call.Arguments)
	if err != nil {
		return errorReply(err)
	}
	id, err := callargs.SessionID(args, keyID)
	if err != nil {
		return errorReply(err)
	}
	ops, err := batch.Decode(args)
	if err != nil {
		return errorReply(err)
	}
	if _, ok := p.registry.Lookup(id); !ok {
		return errorReply(&session.NotFoundError{ID: id})
	}
	return Success(p.processor.Run(ctx, id, ops, p.options.Shape()))
}

// handleDebug reports the open sessions for cmd "get".
func (p *Plugin) handleDebug(_ context.Context, call MethodCall) Reply {
	args, err := callargs.Map(call.Arguments)
	if err != nil {
		return errorReply(err)
	}
	cmd, err := callargs.RequiredString(args, keyCmd)
	if err != nil {
		return errorReply(err)
	}
	if cmd != debugCmdGet {
		return errorReply(&callargs.Error{Key: keyCmd, Reason: "unknown command " + strconv.Quote(cmd)})
	}

	entries := []value.Entry{}
	for _, sess := range p.registry.Snapshot() {
		entries = append(entries, value.E(strconv.FormatUint(uint64(sess.ID), 10), value.NewMap(
			value.E(keyPath, value.String(sess.Path)),
			value.E(keySingleInstance, value.Bool(sess.SingleInstance)),
			value.E(keyLogLevel, value.Int32(int32(sess.LogLevel))),
		)))
	}
	return Success(value.NewMap(
		value.E(keyDatabases, value.NewMap(entries...)),
		value.E(keyLogLevel, value.Int32(int32(p.options.LogLevel()))),
	))
}

// handleDebugMode switches the global log level between verbose and none.
// The argument is the flag itself rather than a map.
func (p *Plugin) handleDebugMode(_ context.Context, call MethodCall) Reply {
	on, err := callargs.OptionalFlag(value.NewMap(value.E("on", call.Arguments)), "on")
	if err != nil {
		return errorReply(err)
	}
	if on == nil {
		return errorReply(&callargs.Error{Key: "on", Reason: "required"})
	}
	if *on {
		p.options.SetLogLevel(session.LogLevelVerbose)
	} else {
		p.options.SetLogLevel(session.LogLevelNone)
	}
	return Success(nil)
}
