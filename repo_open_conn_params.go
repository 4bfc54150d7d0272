package scribews

import (
	"context"
	"net/http"
	"net/url"

	"github.com/pkg/errors"
)

type (
	OpenConnectionParams struct {
		URL    url.URL
		Header http.Header
	}

	OpenConnectionParamsGetter func(ctx context.Context, address string) (OpenConnectionParams, error)

	OpenConnectionParamsRepo struct {
		logger Logger
		getter OpenConnectionParamsGetter
	}
)

func (r OpenConnectionParamsRepo) Get(
	ctx context.Context,
	address string,
) (params OpenConnectionParams, err error) {
	params, err = r.getter(ctx, address)
	if err != nil {
		r.logger.Errorf("cannot fetch open connection params for %s: %s", address, err)
	}
	return
}

func NewOpenConnectionParamsRepo(
	logger Logger,
	getter OpenConnectionParamsGetter,
) OpenConnectionParamsRepo {
	return OpenConnectionParamsRepo{getter: getter, logger: logger}
}

// StaticHeaderParams dials the address itself with a fixed set of headers.
func StaticHeaderParams(header http.Header) OpenConnectionParamsGetter {
	return func(_ context.Context, address string) (OpenConnectionParams, error) {
		u, err := url.Parse(address)
		if err != nil {
			return OpenConnectionParams{}, errors.Wrap(ErrInvalidAddress, err.Error())
		}
		return OpenConnectionParams{URL: *u, Header: header.Clone()}, nil
	}
}
