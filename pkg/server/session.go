package server

import (
	"context"
	"strings"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/kpfaulkner/featuretables/pkg/rpc"
)

// sessionFromContext returns the session id sent by the client, or "" if
// there is none.
func sessionFromContext(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if v := md.Get(rpc.SessionHeader); len(v) > 0 {
		return v[0]
	}
	return ""
}

// SessionInterceptor logs every call with the client's session id.
func SessionInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	resp, err := handler(ctx, req)

	entry := log.WithFields(log.Fields{
		"session": sessionFromContext(ctx),
		"method":  strings.TrimPrefix(info.FullMethod, "/"+rpc.ServiceName+"/"),
	})
	if err != nil {
		entry.WithField("code", status.Code(err).String()).Infof("request failed: %v", err)
	} else {
		entry.Info("request")
	}
	return resp, err
}
