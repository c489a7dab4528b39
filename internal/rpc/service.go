package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

const serviceName = "barbook.Catalog"

// CatalogServer is the read-only catalog API.
type CatalogServer interface {
	SearchIngredients(context.Context, *SearchIngredientsRequest) (*SearchIngredientsResponse, error)
	ListCocktails(context.Context, *ListCocktailsRequest) (*ListCocktailsResponse, error)
	GetCocktail(context.Context, *GetCocktailRequest) (*GetCocktailResponse, error)
	GetCatalog(context.Context, *GetCatalogRequest) (*GetCatalogResponse, error)
}

func RegisterCatalogServer(s grpc.ServiceRegistrar, srv CatalogServer) {
	s.RegisterService(&catalogServiceDesc, srv)
}

// unary adapts a typed method to grpc's handler signature.
func unary[Req, Resp any](method string, call func(CatalogServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(CatalogServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/" + method}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(CatalogServer), ctx, req.(*Req))
			})
		},
	}
}

var catalogServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*CatalogServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("SearchIngredients", CatalogServer.SearchIngredients),
		unary("ListCocktails", CatalogServer.ListCocktails),
		unary("GetCocktail", CatalogServer.GetCocktail),
		unary("GetCatalog", CatalogServer.GetCatalog),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "barbook/catalog",
}

// Client calls a remote CatalogServer. Token, when set, is sent as a bearer
// token with every call.
type Client struct {
	cc    grpc.ClientConnInterface
	Token string
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) invoke(ctx context.Context, method string, in, out any) error {
	if c.Token != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+c.Token)
	}
	return c.cc.Invoke(ctx, "/"+serviceName+"/"+method, in, out, grpc.CallContentSubtype(CodecName))
}

func (c *Client) SearchIngredients(ctx context.Context, in *SearchIngredientsRequest) (*SearchIngredientsResponse, error) {
	out := new(SearchIngredientsResponse)
	if err := c.invoke(ctx, "SearchIngredients", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListCocktails(ctx context.Context, in *ListCocktailsRequest) (*ListCocktailsResponse, error) {
	out := new(ListCocktailsResponse)
	if err := c.invoke(ctx, "ListCocktails", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetCocktail(ctx context.Context, in *GetCocktailRequest) (*GetCocktailResponse, error) {
	out := new(GetCocktailResponse)
	if err := c.invoke(ctx, "GetCocktail", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetCatalog(ctx context.Context, in *GetCatalogRequest) (*GetCatalogResponse, error) {
	out := new(GetCatalogResponse)
	if err := c.invoke(ctx, "GetCatalog", in, out); err != nil {
		return nil, err
	}
	return out, nil
}
