package roster

import "fmt"

var westStoreNames = []string{
	"Cleburne", "Stephenville", "Granbury", "Rufe Snow",
	"Golden Triangle", "28th St", "Weatherford", "Clifford", "Chisholm Trail",
}

func SeedDistricts() []District {
	return []District{
		{ID: "d_west", Name: "DFW West"},
		{ID: "d_north", Name: "DFW North"},
		{ID: "d_south", Name: "DFW South"},
	}
}

func SeedStores() []Store {
	stores := make([]Store, 0, 27)
	for i, name := range westStoreNames {
		stores = append(stores, Store{ID: fmt.Sprintf("s_west_%d", i), Name: name, DistrictID: "d_west"})
	}
	for i := 1; i <= 9; i++ {
		stores = append(stores, Store{ID: fmt.Sprintf("s_north_%d", i), Name: fmt.Sprintf("Store %d - DFW North", i), DistrictID: "d_north"})
	}
	for i := 1; i <= 9; i++ {
		stores = append(stores, Store{ID: fmt.Sprintf("s_south_%d", i), Name: fmt.Sprintf("Store %d - DFW South", i), DistrictID: "d_south"})
	}
	return stores
}

// SeedUsers creates one placeholder user per store-level role in every store,
// a manager per district and a single regional director.
func SeedUsers(districts []District, stores []Store) []User {
	users := make([]User, 0, len(stores)*3+len(districts)+1)
	for _, s := range stores {
		users = append(users,
			User{ID: "u_me_" + s.ID, Name: string(RoleExpert), Role: RoleExpert, StoreID: s.ID, DistrictID: s.DistrictID},
			User{ID: "u_ram_" + s.ID, Name: string(RoleRAM), Role: RoleRAM, StoreID: s.ID, DistrictID: s.DistrictID},
			User{ID: "u_rsm_" + s.ID, Name: string(RoleRSM), Role: RoleRSM, StoreID: s.ID, DistrictID: s.DistrictID},
		)
	}
	for _, d := range districts {
		users = append(users, User{ID: "u_dm_" + d.ID, Name: string(RoleDM), Role: RoleDM, DistrictID: d.ID})
	}
	users = append(users, User{ID: "u_rd_1", Name: string(RoleRD), Role: RoleRD})
	return users
}
