// Package rpc serves the catalog over gRPC with a JSON codec, so clients
// need no generated stubs.
package rpc

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"barbook/internal/auth"
	"barbook/internal/catalog"
	"barbook/internal/cocktails"
	"barbook/internal/ingredients"
	"barbook/pkg/fuzzy"
	"barbook/pkg/models"
)

type claimsKey struct{}

type ThresholdSource interface {
	SearchThreshold(ctx context.Context) float64
}

type Server struct {
	Ingredients *ingredients.Repo
	Cocktails   *cocktails.Repo
	Catalog     *catalog.Repo
	Threshold   ThresholdSource
	Log         *zap.Logger
}

func NewServer(ings *ingredients.Repo, cts *cocktails.Repo, cat *catalog.Repo, threshold ThresholdSource, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{Ingredients: ings, Cocktails: cts, Catalog: cat, Threshold: threshold, Log: logger}
}

func (s *Server) threshold(ctx context.Context) float64 {
	if s.Threshold == nil {
		return fuzzy.DefaultThreshold
	}
	return s.Threshold.SearchThreshold(ctx)
}

func (s *Server) SearchIngredients(ctx context.Context, req *SearchIngredientsRequest) (*SearchIngredientsResponse, error) {
	threshold := s.threshold(ctx)
	if req.Threshold != nil {
		if *req.Threshold < 0 || *req.Threshold > 1 {
			return nil, status.Error(codes.InvalidArgument, "threshold must be between 0 and 1")
		}
		threshold = *req.Threshold
	}
	limit := req.Limit
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	items, err := s.Ingredients.Search(ctx, req.Query, threshold, limit)
	if err != nil {
		s.Log.Error("rpc search ingredients", zap.Error(err))
		return nil, status.Error(codes.Internal, "search failed")
	}
	return &SearchIngredientsResponse{Items: items}, nil
}

func (s *Server) ListCocktails(ctx context.Context, req *ListCocktailsRequest) (*ListCocktailsResponse, error) {
	q := cocktails.ListQuery{
		Q:           strings.TrimSpace(req.Q),
		Ingredients: req.Ingredients,
		MatchAny:    req.MatchAny,
		Tag:         req.Tag,
		Glass:       req.Glass,
		Threshold:   s.threshold(ctx),
	}
	if req.ActiveOnly {
		active := true
		q.Active = &active
	}

	items, err := s.Cocktails.List(ctx, q)
	if err != nil {
		s.Log.Error("rpc list cocktails", zap.Error(err))
		return nil, status.Error(codes.Internal, "list failed")
	}

	limit := req.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := max(req.Offset, 0)
	total := len(items)
	return &ListCocktailsResponse{
		Total:  total,
		Limit:  limit,
		Offset: offset,
		Items:  items[min(offset, total):min(offset+limit, total)],
	}, nil
}

func (s *Server) GetCocktail(ctx context.Context, req *GetCocktailRequest) (*GetCocktailResponse, error) {
	id := strings.TrimSpace(req.ID)
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "id required")
	}

	c, err := s.Cocktails.GetByID(ctx, id)
	if err != nil {
		return nil, status.Error(codes.Internal, "get failed")
	}
	if c == nil {
		return nil, status.Error(codes.NotFound, "not found")
	}
	return &GetCocktailResponse{Cocktail: *c}, nil
}

func (s *Server) GetCatalog(ctx context.Context, req *GetCatalogRequest) (*GetCatalogResponse, error) {
	if req.IncludeHidden {
		claims, ok := ctx.Value(claimsKey{}).(*auth.Claims)
		if !ok || !claims.Role.Allows(models.RoleEditor) {
			return nil, status.Error(codes.PermissionDenied, "hidden items need the editor role")
		}
	}

	items, err := s.Catalog.List(ctx, req.IncludeHidden)
	if err != nil {
		s.Log.Error("rpc get catalog", zap.Error(err))
		return nil, status.Error(codes.Internal, "list failed")
	}
	return &GetCatalogResponse{Items: items, Sections: catalog.Sections(items)}, nil
}

// AuthInterceptor requires a valid bearer token in the "authorization"
// metadata, the same tokens the HTTP API issues. Tokens are checked against
// repo as AuthMiddleware does, so revoked tokens fail here too.
func AuthInterceptor(tokens auth.TokenService, repo *auth.Repo) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		md, _ := metadata.FromIncomingContext(ctx)
		vals := md.Get("authorization")
		if len(vals) == 0 {
			return nil, status.Error(codes.Unauthenticated, "missing bearer token")
		}
		raw, ok := auth.BearerToken(vals[0])
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "missing bearer token")
		}
		claims, err := auth.Verify(ctx, tokens, repo, raw)
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, "invalid token")
		}
		return handler(context.WithValue(ctx, claimsKey{}, claims), req)
	}
}
