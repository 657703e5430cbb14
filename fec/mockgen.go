//go:build gomock || generate

package fec

//go:generate sh -c "go run go.uber.org/mock/mockgen -typed -build_flags=\"-tags=gomock\" -package fec -self_package github.com/observe-l/nrfec/fec -destination mock_table_provider_test.go github.com/observe-l/nrfec/fec TableProvider"
