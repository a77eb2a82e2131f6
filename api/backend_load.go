package api

import (
	"context"
	"sort"

	"github.com/GlintPay/defcheck/backend"
	gotel "github.com/GlintPay/defcheck/otel"
	"github.com/GlintPay/defcheck/utils"
)

// ListDefinitions returns the sorted names of every definition file in a store
func ListDefinitions(files backend.FileStore) ([]string, error) {
	names := []string{}
	if files == nil {
		return names, nil
	}

	err := files.ForEach(func(f backend.File) error {
		if readable, _ := f.IsReadable(); readable {
			names = append(names, utils.DefinitionName(f.Name()))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(names)
	return names, nil
}

func (rtr *Routing) loadState(ctxt context.Context, req Request) (*backend.State, error) {
	if req.EnableTrace {
		_, span := gotel.GetTracer(ctxt).Start(ctxt, "loadState", gotel.ServerOptions)
		defer span.End()
	}

	// the first backend has the highest priority
	return rtr.Backends[0].GetCurrentState(ctxt, req.RefreshBackend)
}
