// Package world builds a network of sparks, containers and retainers from a
// YAML description.
//
//	sparks:
//	  - id: core
//	    master: true
//	  - id: west
//	    network: core
//	    at: overworld@1,64,0
//	    container:
//	      slots: 27
//	      contents:
//	        - {type: stone, count: 2stacks}
package world

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"corenet/pkg/interceptor"
	"corenet/pkg/node"
	"corenet/pkg/storage"
	"corenet/pkg/types"
	"corenet/pkg/utils"

	"github.com/hashicorp/go-multierror"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var ErrUnknownNode = errors.New("unknown node")

type Description struct {
	Sparks []SparkSpec `yaml:"sparks"`
}

type SparkSpec struct {
	ID        string         `yaml:"id"`
	Master    bool           `yaml:"master"`
	Network   string         `yaml:"network"`
	At        string         `yaml:"at"`
	Retainer  bool           `yaml:"retainer"`
	Container *ContainerSpec `yaml:"container"`
}

type ContainerSpec struct {
	Slots      int        `yaml:"slots"`
	StackLimit int        `yaml:"stack_limit"`
	Contents   []ItemSpec `yaml:"contents"`
}

type ItemSpec struct {
	Type  string            `yaml:"type"`
	Name  string            `yaml:"name"`
	Tags  map[string]string `yaml:"tags"`
	Count string            `yaml:"count"`
}

// World is a built description.
type World struct {
	Registry *storage.Registry

	sparks    map[types.NodeID]*node.Spark
	retainers map[types.NodeID]*interceptor.Retainer
	order     []types.NodeID
}

func Load(path string, logger *zap.Logger) (*World, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read world file: %w", err)
	}
	return Parse(data, logger)
}

func Parse(data []byte, logger *zap.Logger) (*World, error) {
	var desc Description
	if err := yaml.Unmarshal(data, &desc); err != nil {
		return nil, fmt.Errorf("failed to parse world: %w", err)
	}
	return Build(desc, logger)
}

// Build validates desc and constructs it. Every validation problem is reported.
func Build(desc Description, logger *zap.Logger) (*World, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := desc.Validate(); err != nil {
		return nil, err
	}

	w := &World{
		Registry:  storage.NewRegistry(logger.Named("registry")),
		sparks:    make(map[types.NodeID]*node.Spark, len(desc.Sparks)),
		retainers: make(map[types.NodeID]*interceptor.Retainer),
	}

	for _, spec := range desc.Sparks {
		id := types.NodeID(spec.ID)
		var s *node.Spark
		if spec.Master {
			s = node.NewMaster(id)
		} else {
			s = node.NewSpark(id)
		}
		if spec.At != "" {
			loc, _ := ParseLocation(spec.At)
			s.Site(loc)
		}
		w.sparks[id] = s
		w.order = append(w.order, id)
	}

	var errs *multierror.Error
	for _, spec := range desc.Sparks {
		s := w.sparks[types.NodeID(spec.ID)]

		if spec.Network != "" {
			if err := s.Attach(w.sparks[types.NodeID(spec.Network)]); err != nil {
				errs = multierror.Append(errs, fmt.Errorf("spark %s: %w", spec.ID, err))
				continue
			}
		}

		if spec.Container == nil {
			continue
		}
		if err := w.place(s, spec, logger); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("spark %s: %w", spec.ID, err))
		}
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}

	logger.Info("World built",
		zap.Int("sparks", len(w.sparks)),
		zap.Int("containers", len(w.Registry.Locations())),
		zap.Int("retainers", len(w.retainers)))

	return w, nil
}

func (w *World) place(s *node.Spark, spec SparkSpec, logger *zap.Logger) error {
	c := spec.Container
	inv := storage.NewInventoryWithOptions(c.Slots, c.StackLimit)

	for _, item := range c.Contents {
		count, _ := utils.ParseQuantity(item.Count)
		left := inv.Insert(types.Resource{
			Type:     item.Type,
			Name:     item.Name,
			Tags:     item.Tags,
			Quantity: count,
		})
		if left > 0 {
			return fmt.Errorf("container overflows by %d %s", left, item.Type)
		}
	}

	var owner any
	if spec.Retainer {
		r := interceptor.NewRetainer(logger.Named("retainer").With(zap.String("spark", spec.ID)))
		w.retainers[s.ID()] = r
		owner = r
	}

	loc, _ := s.Location()
	w.Registry.Place(loc, inv, s, owner)
	return nil
}

// Validate reports every problem in the description at once.
func (d Description) Validate() error {
	var errs *multierror.Error

	specs := lo.KeyBy(d.Sparks, func(s SparkSpec) string { return s.ID })
	seen := make(map[string]bool, len(d.Sparks))
	sites := make(map[types.Location]string)

	for i, spec := range d.Sparks {
		if spec.ID == "" {
			errs = multierror.Append(errs, fmt.Errorf("spark #%d: missing id", i))
			continue
		}
		if seen[spec.ID] {
			errs = multierror.Append(errs, fmt.Errorf("spark %s: duplicate id", spec.ID))
		}
		seen[spec.ID] = true

		if spec.Master && spec.Network != "" {
			errs = multierror.Append(errs, fmt.Errorf("spark %s: a master cannot join another network", spec.ID))
		}
		if spec.Network != "" {
			master, ok := specs[spec.Network]
			switch {
			case !ok:
				errs = multierror.Append(errs, fmt.Errorf("spark %s: network %s: %w", spec.ID, spec.Network, ErrUnknownNode))
			case !master.Master:
				errs = multierror.Append(errs, fmt.Errorf("spark %s: network %s is not a master", spec.ID, spec.Network))
			}
		}

		if spec.At != "" {
			loc, err := ParseLocation(spec.At)
			if err != nil {
				errs = multierror.Append(errs, fmt.Errorf("spark %s: %w", spec.ID, err))
			} else if other, taken := sites[loc]; taken {
				errs = multierror.Append(errs, fmt.Errorf("spark %s: %s already occupied by %s", spec.ID, loc, other))
			} else {
				sites[loc] = spec.ID
			}
		}

		if spec.Retainer && spec.Container == nil {
			errs = multierror.Append(errs, fmt.Errorf("spark %s: a retainer needs a container", spec.ID))
		}
		if spec.Container != nil {
			if spec.At == "" {
				errs = multierror.Append(errs, fmt.Errorf("spark %s: container without a location", spec.ID))
			}
			for j, item := range spec.Container.Contents {
				if item.Type == "" {
					errs = multierror.Append(errs, fmt.Errorf("spark %s: item #%d: missing type", spec.ID, j))
				}
				count, err := utils.ParseQuantity(item.Count)
				if err != nil {
					errs = multierror.Append(errs, fmt.Errorf("spark %s: item #%d: %w", spec.ID, j, err))
				} else if count < 0 {
					errs = multierror.Append(errs, fmt.Errorf("spark %s: item #%d: count must be finite", spec.ID, j))
				}
			}
		}
	}

	return errs.ErrorOrNil()
}

// Spark returns the spark with the given id.
func (w *World) Spark(id types.NodeID) (*node.Spark, error) {
	s, ok := w.sparks[id]
	if !ok {
		return nil, fmt.Errorf("spark %s: %w", id, ErrUnknownNode)
	}
	return s, nil
}

// Retainer returns the retainer sited with the given spark.
func (w *World) Retainer(id types.NodeID) (*interceptor.Retainer, error) {
	r, ok := w.retainers[id]
	if !ok {
		return nil, fmt.Errorf("retainer %s: %w", id, ErrUnknownNode)
	}
	return r, nil
}

// Sparks returns every spark in description order.
func (w *World) Sparks() []*node.Spark {
	return lo.Map(w.order, func(id types.NodeID, _ int) *node.Spark {
		return w.sparks[id]
	})
}

// Masters returns the ids of all masters, sorted.
func (w *World) Masters() []types.NodeID {
	ids := lo.Filter(w.order, func(id types.NodeID, _ int) bool {
		return w.sparks[id].IsMaster()
	})
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
